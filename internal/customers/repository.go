package customers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gearbox-ops/gearbox-ops/internal/platform/db"
	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

// Repository persists customers. Trash lifecycle methods satisfy the trash
// bin port so retention is handled uniformly across entities.
type Repository interface {
	Get(ctx context.Context, id int64) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error)
	Create(ctx context.Context, c Customer) (int64, error)
	Update(ctx context.Context, id int64, req UpdateCustomerRequest) error

	SoftDelete(ctx context.Context, id int64, at time.Time) error
	Restore(ctx context.Context, id int64) error
	ListTrashed(ctx context.Context) ([]Customer, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	store db.Store
}

// NewRepository builds the store-backed repository.
func NewRepository(store db.Store) Repository {
	return &repository{store: store}
}

const customerColumns = `id, name, phone, email, address, deleted_at, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	row := r.store.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = ? AND deleted_at IS NULL`, id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
		}
		return nil, err
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	where := "WHERE deleted_at IS NULL"
	var args []any
	if req.Search != "" {
		where += " AND (name LIKE ? OR phone LIKE ?)"
		args = append(args, "%"+req.Search+"%", "%"+req.Search+"%")
	}

	var total int
	if err := r.store.QueryRow(ctx, "SELECT COUNT(*) FROM customers "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := shared.NewPagination(req.Page, req.PerPage, total)
	query := fmt.Sprintf("SELECT %s FROM customers %s ORDER BY name LIMIT ? OFFSET ?", customerColumns, where)
	args = append(args, p.PerPage, p.Offset())

	rows, err := r.store.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomerRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Customer) (int64, error) {
	now := time.Now().UTC()
	return r.store.ExecInsert(ctx,
		`INSERT INTO customers (name, phone, email, address, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, c.Phone, c.Email, c.Address, now, now)
}

func (r *repository) Update(ctx context.Context, id int64, req UpdateCustomerRequest) error {
	query := "UPDATE customers SET updated_at = ?"
	args := []any{time.Now().UTC()}
	if req.Name != nil {
		query += ", name = ?"
		args = append(args, *req.Name)
	}
	if req.Phone != nil {
		query += ", phone = ?"
		args = append(args, *req.Phone)
	}
	if req.Email != nil {
		query += ", email = ?"
		args = append(args, *req.Email)
	}
	if req.Address != nil {
		query += ", address = ?"
		args = append(args, *req.Address)
	}
	query += " WHERE id = ? AND deleted_at IS NULL"
	args = append(args, id)

	affected, err := r.store.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	affected, err := r.store.Exec(ctx,
		`UPDATE customers SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, at, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) Restore(ctx context.Context, id int64) error {
	affected, err := r.store.Exec(ctx,
		`UPDATE customers SET deleted_at = NULL WHERE id = ? AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: trashed customer %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) ListTrashed(ctx context.Context) ([]Customer, error) {
	rows, err := r.store.Query(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE deleted_at IS NOT NULL ORDER BY deleted_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomerRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *repository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.store.Exec(ctx,
		`DELETE FROM customers WHERE deleted_at IS NOT NULL AND deleted_at < ?`, cutoff)
}

func scanCustomer(row db.Row) (*Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCustomerRow(rows db.Rows) (*Customer, error) {
	var c Customer
	if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
