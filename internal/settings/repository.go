package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gearbox-ops/gearbox-ops/internal/platform/db"
	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

// Repository persists settings rows.
type Repository interface {
	Get(ctx context.Context, key string) (*Setting, error)
	List(ctx context.Context) ([]Setting, error)
	Set(ctx context.Context, key, value string) error
}

type repository struct {
	store db.Store
}

// NewRepository builds the store-backed repository.
func NewRepository(store db.Store) Repository {
	return &repository{store: store}
}

func (r *repository) Get(ctx context.Context, key string) (*Setting, error) {
	var s Setting
	err := r.store.QueryRow(ctx,
		`SELECT setting_key, setting_value, updated_at FROM settings WHERE setting_key = ?`, key).
		Scan(&s.Key, &s.Value, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, fmt.Errorf("%w: setting %s", shared.ErrNotFound, key)
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) List(ctx context.Context) ([]Setting, error) {
	rows, err := r.store.Query(ctx, `SELECT setting_key, setting_value, updated_at FROM settings ORDER BY setting_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Set updates an existing row or inserts a new one. The update-then-insert
// shape stays portable across both engines.
func (r *repository) Set(ctx context.Context, key, value string) error {
	now := time.Now().UTC()
	affected, err := r.store.Exec(ctx,
		`UPDATE settings SET setting_value = ?, updated_at = ? WHERE setting_key = ?`, value, now, key)
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	_, err = r.store.Exec(ctx,
		`INSERT INTO settings (setting_key, setting_value, updated_at) VALUES (?, ?, ?)`, key, value, now)
	if errors.Is(err, db.ErrDuplicate) {
		// Lost the insert race; the other writer's value wins.
		return nil
	}
	return err
}
