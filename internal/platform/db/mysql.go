package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// myStore implements Store on database/sql with the MySQL driver.
type myStore struct {
	db *sql.DB
}

// OpenMySQL creates the MySQL-backed store. The DSN must enable parseTime
// so DATETIME columns scan into time.Time.
func OpenMySQL(ctx context.Context, dsn string) (Store, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: open mysql: %w", err)
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("platform/db: ping mysql: %w", err)
	}

	return &myStore{db: conn}, nil
}

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type myExecutor struct {
	q sqlQuerier
}

func (e myExecutor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := e.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapMyError(err)
	}
	return res.RowsAffected()
}

func (e myExecutor) ExecInsert(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := e.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapMyError(err)
	}
	return res.LastInsertId()
}

func (e myExecutor) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := e.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapMyError(err)
	}
	return myRows{rows: rows}, nil
}

func (e myExecutor) QueryRow(ctx context.Context, query string, args ...any) Row {
	return myRow{row: e.q.QueryRowContext(ctx, query, args...)}
}

func (s *myStore) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return myExecutor{q: s.db}.Exec(ctx, query, args...)
}

func (s *myStore) ExecInsert(ctx context.Context, query string, args ...any) (int64, error) {
	return myExecutor{q: s.db}.ExecInsert(ctx, query, args...)
}

func (s *myStore) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return myExecutor{q: s.db}.Query(ctx, query, args...)
}

func (s *myStore) QueryRow(ctx context.Context, query string, args ...any) Row {
	return myExecutor{q: s.db}.QueryRow(ctx, query, args...)
}

// WithTx executes fn within a RepeatableRead transaction.
func (s *myStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Executor) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, myExecutor{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

func (s *myStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *myStore) Close() {
	_ = s.db.Close()
}

type myRow struct {
	row *sql.Row
}

func (r myRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return mapMyError(err)
	}
	return nil
}

type myRows struct {
	rows *sql.Rows
}

func (r myRows) Next() bool             { return r.rows.Next() }
func (r myRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r myRows) Close()                 { _ = r.rows.Close() }
func (r myRows) Err() error             { return r.rows.Err() }

func mapMyError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return fmt.Errorf("%w: %s", ErrDuplicate, myErr.Message)
	}
	return err
}
