package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gearbox-ops/gearbox-ops/internal/jobcards"
	"github.com/gearbox-ops/gearbox-ops/internal/platform/db"
	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

// Repository persists invoices. GenerateInvoice runs through WithTx so the
// invoice insert and the status flip commit together.
type Repository interface {
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetByJob(ctx context.Context, jobID int64) (*Invoice, error)
	List(ctx context.Context, page, perPage int) ([]Invoice, int, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// TxRepository is the transaction-scoped surface for invoice generation.
type TxRepository interface {
	GetJobForUpdate(ctx context.Context, jobID int64) (*jobcards.JobCard, error)
	CountLines(ctx context.Context, jobID int64) (int, error)
	FindInvoiceByJob(ctx context.Context, jobID int64) (*Invoice, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	SetJobBilled(ctx context.Context, jobID int64) error
}

type repository struct {
	store db.Store
}

// NewRepository builds the store-backed repository.
func NewRepository(store db.Store) Repository {
	return &repository{store: store}
}

const invoiceColumns = `id, invoice_no, job_id, created_at`

func scanInvoice(row db.Row) (*Invoice, error) {
	var inv Invoice
	if err := row.Scan(&inv.ID, &inv.InvoiceNo, &inv.JobID, &inv.CreatedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := scanInvoice(r.store.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
		}
		return nil, err
	}
	return inv, nil
}

func (r *repository) GetByJob(ctx context.Context, jobID int64) (*Invoice, error) {
	inv, err := scanInvoice(r.store.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE job_id = ?`, jobID))
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, fmt.Errorf("%w: invoice for job %d", shared.ErrNotFound, jobID)
		}
		return nil, err
	}
	return inv, nil
}

func (r *repository) List(ctx context.Context, page, perPage int) ([]Invoice, int, error) {
	var total int
	if err := r.store.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := shared.NewPagination(page, perPage, total)
	rows, err := r.store.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices ORDER BY id DESC LIMIT ? OFFSET ?`,
		p.PerPage, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *inv)
	}
	return out, total, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return r.store.WithTx(ctx, func(ctx context.Context, q db.Executor) error {
		return fn(ctx, &txRepository{q: q})
	})
}

type txRepository struct {
	q db.Executor
}

func (t *txRepository) GetJobForUpdate(ctx context.Context, jobID int64) (*jobcards.JobCard, error) {
	var j jobcards.JobCard
	err := t.q.QueryRow(ctx,
		`SELECT id, vehicle_id, customer_id, odometer_km, complaint, mechanic_notes, status,
			mechanic_id, started_at, completed_at, services_total, parts_total, tax_amount, grand_total,
			deleted_at, created_at, updated_at
		FROM job_cards WHERE id = ? AND deleted_at IS NULL FOR UPDATE`, jobID).
		Scan(&j.ID, &j.VehicleID, &j.CustomerID, &j.OdometerKM, &j.Complaint, &j.MechanicNotes,
			&j.Status, &j.MechanicID, &j.StartedAt, &j.CompletedAt, &j.ServicesTotal, &j.PartsTotal,
			&j.TaxAmount, &j.GrandTotal, &j.DeletedAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, fmt.Errorf("%w: job %d", shared.ErrNotFound, jobID)
		}
		return nil, err
	}
	return &j, nil
}

func (t *txRepository) CountLines(ctx context.Context, jobID int64) (int, error) {
	var services, parts int
	if err := t.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM job_service_lines WHERE job_id = ?`, jobID).Scan(&services); err != nil {
		return 0, err
	}
	if err := t.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM job_part_lines WHERE job_id = ?`, jobID).Scan(&parts); err != nil {
		return 0, err
	}
	return services + parts, nil
}

func (t *txRepository) FindInvoiceByJob(ctx context.Context, jobID int64) (*Invoice, error) {
	inv, err := scanInvoice(t.q.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE job_id = ?`, jobID))
	if errors.Is(err, db.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (t *txRepository) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	id, err := t.q.ExecInsert(ctx,
		`INSERT INTO invoices (invoice_no, job_id, created_at) VALUES (?, ?, ?)`,
		inv.InvoiceNo, inv.JobID, inv.CreatedAt)
	if errors.Is(err, db.ErrDuplicate) {
		return 0, fmt.Errorf("%w: job %d is already invoiced", shared.ErrConflict, inv.JobID)
	}
	return id, err
}

func (t *txRepository) SetJobBilled(ctx context.Context, jobID int64) error {
	_, err := t.q.Exec(ctx,
		`UPDATE job_cards SET status = ?, updated_at = ? WHERE id = ?`,
		jobcards.StatusBilled, time.Now().UTC(), jobID)
	return err
}
