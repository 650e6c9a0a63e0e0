package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgStore implements Store on a pgx connection pool.
type pgStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres creates the PostgreSQL-backed store.
func OpenPostgres(ctx context.Context, dsn string) (Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}

	return &pgStore{pool: pool}, nil
}

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgExecutor struct {
	q pgQuerier
}

func (e pgExecutor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := e.q.Exec(ctx, rebind(query), args...)
	if err != nil {
		return 0, mapPgError(err)
	}
	return tag.RowsAffected(), nil
}

func (e pgExecutor) ExecInsert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := e.q.QueryRow(ctx, rebind(query)+" RETURNING id", args...).Scan(&id)
	if err != nil {
		return 0, mapPgError(err)
	}
	return id, nil
}

func (e pgExecutor) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := e.q.Query(ctx, rebind(query), args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	return pgRows{rows: rows}, nil
}

func (e pgExecutor) QueryRow(ctx context.Context, query string, args ...any) Row {
	return pgRow{row: e.q.QueryRow(ctx, rebind(query), args...)}
}

func (s *pgStore) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return pgExecutor{q: s.pool}.Exec(ctx, query, args...)
}

func (s *pgStore) ExecInsert(ctx context.Context, query string, args ...any) (int64, error) {
	return pgExecutor{q: s.pool}.ExecInsert(ctx, query, args...)
}

func (s *pgStore) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return pgExecutor{q: s.pool}.Query(ctx, query, args...)
}

func (s *pgStore) QueryRow(ctx context.Context, query string, args ...any) Row {
	return pgExecutor{q: s.pool}.QueryRow(ctx, query, args...)
}

// WithTx executes fn within a RepeatableRead transaction.
func (s *pgStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Executor) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, pgExecutor{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

func (s *pgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *pgStore) Close() {
	s.pool.Close()
}

type pgRow struct {
	row pgx.Row
}

func (r pgRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return mapPgError(err)
	}
	return nil
}

type pgRows struct {
	rows pgx.Rows
}

func (r pgRows) Next() bool             { return r.rows.Next() }
func (r pgRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r pgRows) Close()                 { r.rows.Close() }
func (r pgRows) Err() error             { return r.rows.Err() }

func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRows
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// rebind rewrites `?` placeholders to PostgreSQL's $1..$n form, leaving
// quoted literals untouched.
func rebind(query string) string {
	if !strings.ContainsRune(query, '?') {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
