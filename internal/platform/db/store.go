// Package db provides the relational store abstraction shared by every
// repository. Two engines implement it: PostgreSQL (pgx) and MySQL
// (database/sql). Queries are written once with `?` placeholders; each
// backend rewrites them to its native form and normalises driver errors.
package db

import (
	"context"
	"errors"
	"fmt"
)

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

var (
	// ErrNoRows indicates an empty result where one row was expected.
	ErrNoRows = errors.New("db: no rows")
	// ErrDuplicate indicates a unique-constraint violation.
	ErrDuplicate = errors.New("db: duplicate key")
)

// Row is a single-row result.
type Row interface {
	Scan(dest ...any) error
}

// Rows is a multi-row result cursor.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close()
	Err() error
}

// Executor runs parameterized statements. Inside WithTx the executor is
// transaction-scoped; legality checks read through it see locked rows.
type Executor interface {
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	// ExecInsert runs an INSERT and returns the generated id.
	ExecInsert(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
}

// Store is the engine boundary handed to repositories.
type Store interface {
	Executor
	// WithTx runs fn inside a single transaction, committing on nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Executor) error) error
	Ping(ctx context.Context) error
	Close()
}

// Open connects the configured engine.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverPostgres:
		return OpenPostgres(ctx, dsn)
	case DriverMySQL:
		return OpenMySQL(ctx, dsn)
	default:
		return nil, fmt.Errorf("db: unknown driver %q", driver)
	}
}
