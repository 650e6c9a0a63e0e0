package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gearbox-ops/gearbox-ops/internal/platform/db"
	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

// Repository persists vehicles. LastKM is only advanced by job intake, which
// runs inside the job-card transaction; this repository never moves it.
type Repository interface {
	Get(ctx context.Context, id int64) (*Vehicle, error)
	GetByRegistration(ctx context.Context, registration string) (*Vehicle, error)
	List(ctx context.Context, req ListVehiclesRequest) ([]Vehicle, int, error)
	Create(ctx context.Context, v Vehicle) (int64, error)
	Update(ctx context.Context, id int64, req UpdateVehicleRequest) error
}

type repository struct {
	store db.Store
}

// NewRepository builds the store-backed repository.
func NewRepository(store db.Store) Repository {
	return &repository{store: store}
}

const vehicleColumns = `id, registration, model, customer_id, last_km, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Vehicle, error) {
	var v Vehicle
	err := r.store.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id).
		Scan(&v.ID, &v.Registration, &v.Model, &v.CustomerID, &v.LastKM, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, fmt.Errorf("%w: vehicle %d", shared.ErrNotFound, id)
		}
		return nil, err
	}
	return &v, nil
}

func (r *repository) GetByRegistration(ctx context.Context, registration string) (*Vehicle, error) {
	var v Vehicle
	err := r.store.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE registration = ?`, registration).
		Scan(&v.ID, &v.Registration, &v.Model, &v.CustomerID, &v.LastKM, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, fmt.Errorf("%w: vehicle %s", shared.ErrNotFound, registration)
		}
		return nil, err
	}
	return &v, nil
}

func (r *repository) List(ctx context.Context, req ListVehiclesRequest) ([]Vehicle, int, error) {
	where := "WHERE 1=1"
	var args []any
	if req.CustomerID != nil {
		where += " AND customer_id = ?"
		args = append(args, *req.CustomerID)
	}
	if req.Search != "" {
		where += " AND (registration LIKE ? OR model LIKE ?)"
		args = append(args, "%"+req.Search+"%", "%"+req.Search+"%")
	}

	var total int
	if err := r.store.QueryRow(ctx, "SELECT COUNT(*) FROM vehicles "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := shared.NewPagination(req.Page, req.PerPage, total)
	query := fmt.Sprintf("SELECT %s FROM vehicles %s ORDER BY registration LIMIT ? OFFSET ?", vehicleColumns, where)
	args = append(args, p.PerPage, p.Offset())

	rows, err := r.store.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		var v Vehicle
		if err := rows.Scan(&v.ID, &v.Registration, &v.Model, &v.CustomerID, &v.LastKM, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, v Vehicle) (int64, error) {
	now := time.Now().UTC()
	id, err := r.store.ExecInsert(ctx,
		`INSERT INTO vehicles (registration, model, customer_id, last_km, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		v.Registration, v.Model, v.CustomerID, v.LastKM, now, now)
	if errors.Is(err, db.ErrDuplicate) {
		return 0, fmt.Errorf("%w: registration %s already exists", shared.ErrConflict, v.Registration)
	}
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, req UpdateVehicleRequest) error {
	query := "UPDATE vehicles SET updated_at = ?"
	args := []any{time.Now().UTC()}
	if req.Model != nil {
		query += ", model = ?"
		args = append(args, *req.Model)
	}
	if req.CustomerID != nil {
		query += ", customer_id = ?"
		args = append(args, *req.CustomerID)
	}
	query += " WHERE id = ?"
	args = append(args, id)

	affected, err := r.store.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: vehicle %d", shared.ErrNotFound, id)
	}
	return nil
}
