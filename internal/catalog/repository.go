package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gearbox-ops/gearbox-ops/internal/platform/db"
	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

// Repository persists catalog rows.
type Repository interface {
	GetServiceItem(ctx context.Context, id int64) (*ServiceItem, error)
	ListServiceItems(ctx context.Context, f ListFilters) ([]ServiceItem, int, error)
	CreateServiceItem(ctx context.Context, item ServiceItem) (int64, error)
	UpdateServiceItem(ctx context.Context, id int64, name *string, price *float64) error

	GetPart(ctx context.Context, id int64) (*Part, error)
	GetPartByNumber(ctx context.Context, number string) (*Part, error)
	ListParts(ctx context.Context, f ListFilters) ([]Part, int, error)
	CreatePart(ctx context.Context, part Part) (int64, error)
	UpdatePart(ctx context.Context, id int64, name *string, unitPrice *float64) error
	// Restock adds inbound stock through the ledger and returns the new level.
	Restock(ctx context.Context, partID int64, qty int) (int, error)
}

type repository struct {
	store  db.Store
	ledger *Ledger
}

// NewRepository builds the store-backed repository.
func NewRepository(store db.Store, ledger *Ledger) Repository {
	return &repository{store: store, ledger: ledger}
}

func (r *repository) Restock(ctx context.Context, partID int64, qty int) (int, error) {
	var newQty int
	err := r.store.WithTx(ctx, func(ctx context.Context, tx db.Executor) error {
		var err error
		newQty, err = r.ledger.Increment(ctx, tx, partID, qty)
		return err
	})
	return newQty, err
}

func (r *repository) GetServiceItem(ctx context.Context, id int64) (*ServiceItem, error) {
	var s ServiceItem
	err := r.store.QueryRow(ctx,
		`SELECT id, name, price, created_at, updated_at FROM catalog_services WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.Price, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, fmt.Errorf("%w: catalog service %d", shared.ErrNotFound, id)
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) ListServiceItems(ctx context.Context, f ListFilters) ([]ServiceItem, int, error) {
	where := ""
	var args []any
	if f.Search != "" {
		where = "WHERE name LIKE ?"
		args = append(args, "%"+f.Search+"%")
	}

	var total int
	if err := r.store.QueryRow(ctx, "SELECT COUNT(*) FROM catalog_services "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := shared.NewPagination(f.Page, f.PerPage, total)
	query := fmt.Sprintf(
		`SELECT id, name, price, created_at, updated_at FROM catalog_services %s ORDER BY name LIMIT ? OFFSET ?`, where)
	args = append(args, p.PerPage, p.Offset())

	rows, err := r.store.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []ServiceItem
	for rows.Next() {
		var s ServiceItem
		if err := rows.Scan(&s.ID, &s.Name, &s.Price, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func (r *repository) CreateServiceItem(ctx context.Context, item ServiceItem) (int64, error) {
	now := time.Now().UTC()
	id, err := r.store.ExecInsert(ctx,
		`INSERT INTO catalog_services (name, price, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		item.Name, item.Price, now, now)
	if errors.Is(err, db.ErrDuplicate) {
		return 0, fmt.Errorf("%w: service %s", shared.ErrConflict, item.Name)
	}
	return id, err
}

func (r *repository) UpdateServiceItem(ctx context.Context, id int64, name *string, price *float64) error {
	query := "UPDATE catalog_services SET updated_at = ?"
	args := []any{time.Now().UTC()}
	if name != nil {
		query += ", name = ?"
		args = append(args, *name)
	}
	if price != nil {
		query += ", price = ?"
		args = append(args, *price)
	}
	query += " WHERE id = ?"
	args = append(args, id)

	affected, err := r.store.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: catalog service %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) GetPart(ctx context.Context, id int64) (*Part, error) {
	return r.scanPart(r.store.QueryRow(ctx,
		`SELECT id, name, part_number, unit_price, stock_qty, created_at, updated_at FROM parts WHERE id = ?`, id),
		fmt.Sprintf("part %d", id))
}

func (r *repository) GetPartByNumber(ctx context.Context, number string) (*Part, error) {
	return r.scanPart(r.store.QueryRow(ctx,
		`SELECT id, name, part_number, unit_price, stock_qty, created_at, updated_at FROM parts WHERE part_number = ?`, number),
		fmt.Sprintf("part %s", number))
}

func (r *repository) scanPart(row db.Row, label string) (*Part, error) {
	var p Part
	err := row.Scan(&p.ID, &p.Name, &p.PartNumber, &p.UnitPrice, &p.StockQty, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, label)
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) ListParts(ctx context.Context, f ListFilters) ([]Part, int, error) {
	where := ""
	var args []any
	if f.Search != "" {
		where = "WHERE name LIKE ? OR part_number LIKE ?"
		args = append(args, "%"+f.Search+"%", "%"+f.Search+"%")
	}

	var total int
	if err := r.store.QueryRow(ctx, "SELECT COUNT(*) FROM parts "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := shared.NewPagination(f.Page, f.PerPage, total)
	query := fmt.Sprintf(
		`SELECT id, name, part_number, unit_price, stock_qty, created_at, updated_at FROM parts %s ORDER BY part_number LIMIT ? OFFSET ?`, where)
	args = append(args, p.PerPage, p.Offset())

	rows, err := r.store.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var parts []Part
	for rows.Next() {
		var part Part
		if err := rows.Scan(&part.ID, &part.Name, &part.PartNumber, &part.UnitPrice, &part.StockQty, &part.CreatedAt, &part.UpdatedAt); err != nil {
			return nil, 0, err
		}
		parts = append(parts, part)
	}
	return parts, total, rows.Err()
}

func (r *repository) CreatePart(ctx context.Context, part Part) (int64, error) {
	now := time.Now().UTC()
	id, err := r.store.ExecInsert(ctx,
		`INSERT INTO parts (name, part_number, unit_price, stock_qty, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		part.Name, part.PartNumber, part.UnitPrice, part.StockQty, now, now)
	if errors.Is(err, db.ErrDuplicate) {
		return 0, fmt.Errorf("%w: part number %s already exists", shared.ErrConflict, part.PartNumber)
	}
	return id, err
}

func (r *repository) UpdatePart(ctx context.Context, id int64, name *string, unitPrice *float64) error {
	query := "UPDATE parts SET updated_at = ?"
	args := []any{time.Now().UTC()}
	if name != nil {
		query += ", name = ?"
		args = append(args, *name)
	}
	if unitPrice != nil {
		query += ", unit_price = ?"
		args = append(args, *unitPrice)
	}
	query += " WHERE id = ?"
	args = append(args, id)

	affected, err := r.store.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: part %d", shared.ErrNotFound, id)
	}
	return nil
}
