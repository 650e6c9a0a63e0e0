package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gearbox-ops/gearbox-ops/internal/platform/db"
	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

// Ledger performs stock movements on the parts table. Every method takes the
// caller's executor so the row lock, the quantity check and the write share
// the transaction that also mutates the job card's part lines.
type Ledger struct{}

// NewLedger builds the stock ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// GetPartForUpdate loads and row-locks a part.
func (l *Ledger) GetPartForUpdate(ctx context.Context, q db.Executor, partID int64) (*Part, error) {
	var p Part
	err := q.QueryRow(ctx,
		`SELECT id, name, part_number, unit_price, stock_qty, created_at, updated_at FROM parts WHERE id = ? FOR UPDATE`,
		partID).
		Scan(&p.ID, &p.Name, &p.PartNumber, &p.UnitPrice, &p.StockQty, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, fmt.Errorf("%w: part %d", shared.ErrNotFound, partID)
		}
		return nil, err
	}
	return &p, nil
}

// DecrementIfAvailable takes qty units of stock, or fails leaving stock
// untouched when the part cannot cover the request. Returns the new stock
// level.
func (l *Ledger) DecrementIfAvailable(ctx context.Context, q db.Executor, partID int64, qty int) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	}
	part, err := l.GetPartForUpdate(ctx, q, partID)
	if err != nil {
		return 0, err
	}
	if part.StockQty < qty {
		return part.StockQty, fmt.Errorf("%w: part %s has %d in stock, requested %d",
			shared.ErrInsufficientStock, part.PartNumber, part.StockQty, qty)
	}
	newQty := part.StockQty - qty
	if err := l.setStock(ctx, q, partID, newQty); err != nil {
		return 0, err
	}
	return newQty, nil
}

// Increment restores qty units of stock and returns the new level. The
// restore is not guarded against exceeding what was ever decremented; the
// caller is responsible for only restoring committed quantities.
func (l *Ledger) Increment(ctx context.Context, q db.Executor, partID int64, qty int) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	}
	part, err := l.GetPartForUpdate(ctx, q, partID)
	if err != nil {
		return 0, err
	}
	newQty := part.StockQty + qty
	if err := l.setStock(ctx, q, partID, newQty); err != nil {
		return 0, err
	}
	return newQty, nil
}

// GetServiceItem resolves a catalog service inside the caller's transaction.
func (l *Ledger) GetServiceItem(ctx context.Context, q db.Executor, id int64) (*ServiceItem, error) {
	var s ServiceItem
	err := q.QueryRow(ctx,
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

func (l *Ledger) setStock(ctx context.Context, q db.Executor, partID int64, qty int) error {
	_, err := q.Exec(ctx, `UPDATE parts SET stock_qty = ?, updated_at = ? WHERE id = ?`,
		qty, time.Now().UTC(), partID)
	return err
}
