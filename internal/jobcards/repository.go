package jobcards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gearbox-ops/gearbox-ops/internal/catalog"
	"github.com/gearbox-ops/gearbox-ops/internal/fleet"
	"github.com/gearbox-ops/gearbox-ops/internal/platform/db"
	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

// Repository is the job-card persistence boundary. Reads outside a
// transaction go through it directly; every multi-step mutation runs inside
// WithTx against the TxRepository so legality checks and writes share one
// transaction.
type Repository interface {
	Get(ctx context.Context, id int64) (*JobCard, error)
	List(ctx context.Context, req ListJobsRequest) ([]JobCard, int, error)
	ListActiveIDs(ctx context.Context) ([]int64, error)
	ListServiceLines(ctx context.Context, jobID int64) ([]JobServiceLine, error)
	ListPartLines(ctx context.Context, jobID int64) ([]JobPartLine, error)

	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error

	SoftDelete(ctx context.Context, id int64, at time.Time) error
	Restore(ctx context.Context, id int64) error
	ListTrashed(ctx context.Context) ([]JobCard, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// TxRepository is the transaction-scoped surface. GetJobForUpdate and
// GetPartForUpdate row-lock, so status and stock checks made through it hold
// until commit.
type TxRepository interface {
	GetJobForUpdate(ctx context.Context, id int64) (*JobCard, error)
	InsertJob(ctx context.Context, job JobCard) (int64, error)
	SaveStatus(ctx context.Context, job *JobCard) error
	SetMechanic(ctx context.Context, id int64, mechanicID *int64) error
	UpdateNotes(ctx context.Context, id int64, notes string) error
	UpdateTotals(ctx context.Context, id int64, totals Totals) error
	DeleteJob(ctx context.Context, id int64) error

	GetVehicleForUpdate(ctx context.Context, id int64) (*fleet.Vehicle, error)
	SetVehicleLastKM(ctx context.Context, vehicleID, km int64) error

	FindServiceLineByCatalog(ctx context.Context, jobID, serviceID int64) (*JobServiceLine, error)
	InsertServiceLine(ctx context.Context, line JobServiceLine) (int64, error)
	UpdateServiceLine(ctx context.Context, line JobServiceLine) error
	DeleteServiceLine(ctx context.Context, jobID, lineID int64) (int64, error)

	GetPartLine(ctx context.Context, jobID, lineID int64) (*JobPartLine, error)
	FindPartLineByCatalog(ctx context.Context, jobID, partID int64) (*JobPartLine, error)
	InsertPartLine(ctx context.Context, line JobPartLine) (int64, error)
	UpdatePartLine(ctx context.Context, line JobPartLine) error
	DeletePartLine(ctx context.Context, jobID, lineID int64) (int64, error)

	ListServiceLines(ctx context.Context, jobID int64) ([]JobServiceLine, error)
	ListPartLines(ctx context.Context, jobID int64) ([]JobPartLine, error)

	GetCatalogService(ctx context.Context, id int64) (*catalog.ServiceItem, error)
	GetPartForUpdate(ctx context.Context, partID int64) (*catalog.Part, error)
	DecrementStockIfAvailable(ctx context.Context, partID int64, qty int) (int, error)
	IncrementStock(ctx context.Context, partID int64, qty int) (int, error)
}

type repository struct {
	store  db.Store
	ledger *catalog.Ledger
}

// NewRepository builds the store-backed repository. Stock movements inside
// job transactions go through the catalog ledger.
func NewRepository(store db.Store, ledger *catalog.Ledger) Repository {
	return &repository{store: store, ledger: ledger}
}

const jobColumns = `id, vehicle_id, customer_id, odometer_km, complaint, mechanic_notes, status,
	mechanic_id, started_at, completed_at, services_total, parts_total, tax_amount, grand_total,
	deleted_at, created_at, updated_at`

func scanJob(row db.Row) (*JobCard, error) {
	var j JobCard
	err := row.Scan(&j.ID, &j.VehicleID, &j.CustomerID, &j.OdometerKM, &j.Complaint, &j.MechanicNotes,
		&j.Status, &j.MechanicID, &j.StartedAt, &j.CompletedAt, &j.ServicesTotal, &j.PartsTotal,
		&j.TaxAmount, &j.GrandTotal, &j.DeletedAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*JobCard, error) {
	job, err := scanJob(r.store.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM job_cards WHERE id = ? AND deleted_at IS NULL`, id))
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, fmt.Errorf("%w: job %d", shared.ErrNotFound, id)
		}
		return nil, err
	}
	return job, nil
}

func (r *repository) List(ctx context.Context, req ListJobsRequest) ([]JobCard, int, error) {
	where := "WHERE deleted_at IS NULL"
	var args []any
	if req.Status != "" {
		where += " AND status = ?"
		args = append(args, req.Status)
	}
	if req.VehicleID != nil {
		where += " AND vehicle_id = ?"
		args = append(args, *req.VehicleID)
	}
	if req.MechanicID != nil {
		where += " AND mechanic_id = ?"
		args = append(args, *req.MechanicID)
	}

	var total int
	if err := r.store.QueryRow(ctx, "SELECT COUNT(*) FROM job_cards "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := shared.NewPagination(req.Page, req.PerPage, total)
	query := fmt.Sprintf("SELECT %s FROM job_cards %s ORDER BY id DESC LIMIT ? OFFSET ?", jobColumns, where)
	args = append(args, p.PerPage, p.Offset())

	rows, err := r.store.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []JobCard
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *job)
	}
	return out, total, rows.Err()
}

func (r *repository) ListActiveIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.store.Query(ctx, `SELECT id FROM job_cards WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repository) ListServiceLines(ctx context.Context, jobID int64) ([]JobServiceLine, error) {
	return listServiceLines(ctx, r.store, jobID)
}

func (r *repository) ListPartLines(ctx context.Context, jobID int64) ([]JobPartLine, error) {
	return listPartLines(ctx, r.store, jobID)
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return r.store.WithTx(ctx, func(ctx context.Context, q db.Executor) error {
		return fn(ctx, &txRepository{q: q, ledger: r.ledger})
	})
}

func (r *repository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	affected, err := r.store.Exec(ctx,
		`UPDATE job_cards SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		at, at, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: job %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) Restore(ctx context.Context, id int64) error {
	affected, err := r.store.Exec(ctx,
		`UPDATE job_cards SET deleted_at = NULL, updated_at = ? WHERE id = ? AND deleted_at IS NOT NULL`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: trashed job %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) ListTrashed(ctx context.Context) ([]JobCard, error) {
	rows, err := r.store.Query(ctx,
		`SELECT `+jobColumns+` FROM job_cards WHERE deleted_at IS NOT NULL ORDER BY deleted_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JobCard
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

func (r *repository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	err := r.store.WithTx(ctx, func(ctx context.Context, q db.Executor) error {
		if _, err := q.Exec(ctx,
			`DELETE FROM job_service_lines WHERE job_id IN (SELECT id FROM job_cards WHERE deleted_at IS NOT NULL AND deleted_at < ?)`,
			cutoff); err != nil {
			return err
		}
		if _, err := q.Exec(ctx,
			`DELETE FROM job_part_lines WHERE job_id IN (SELECT id FROM job_cards WHERE deleted_at IS NOT NULL AND deleted_at < ?)`,
			cutoff); err != nil {
			return err
		}
		n, err := q.Exec(ctx, `DELETE FROM job_cards WHERE deleted_at IS NOT NULL AND deleted_at < ?`, cutoff)
		if err != nil {
			return err
		}
		purged = n
		return nil
	})
	return purged, err
}

type txRepository struct {
	q      db.Executor
	ledger *catalog.Ledger
}

func (t *txRepository) GetJobForUpdate(ctx context.Context, id int64) (*JobCard, error) {
	job, err := scanJob(t.q.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM job_cards WHERE id = ? AND deleted_at IS NULL FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, fmt.Errorf("%w: job %d", shared.ErrNotFound, id)
		}
		return nil, err
	}
	return job, nil
}

func (t *txRepository) InsertJob(ctx context.Context, job JobCard) (int64, error) {
	now := time.Now().UTC()
	return t.q.ExecInsert(ctx,
		`INSERT INTO job_cards (vehicle_id, customer_id, odometer_km, complaint, mechanic_notes, status,
			mechanic_id, started_at, completed_at, services_total, parts_total, tax_amount, grand_total,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.VehicleID, job.CustomerID, job.OdometerKM, job.Complaint, job.MechanicNotes, job.Status,
		job.MechanicID, job.StartedAt, job.CompletedAt, job.ServicesTotal, job.PartsTotal,
		job.TaxAmount, job.GrandTotal, now, now)
}

func (t *txRepository) SaveStatus(ctx context.Context, job *JobCard) error {
	_, err := t.q.Exec(ctx,
		`UPDATE job_cards SET status = ?, started_at = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		job.Status, job.StartedAt, job.CompletedAt, time.Now().UTC(), job.ID)
	return err
}

func (t *txRepository) SetMechanic(ctx context.Context, id int64, mechanicID *int64) error {
	_, err := t.q.Exec(ctx,
		`UPDATE job_cards SET mechanic_id = ?, updated_at = ? WHERE id = ?`,
		mechanicID, time.Now().UTC(), id)
	return err
}

func (t *txRepository) UpdateNotes(ctx context.Context, id int64, notes string) error {
	_, err := t.q.Exec(ctx,
		`UPDATE job_cards SET mechanic_notes = ?, updated_at = ? WHERE id = ?`,
		notes, time.Now().UTC(), id)
	return err
}

func (t *txRepository) UpdateTotals(ctx context.Context, id int64, totals Totals) error {
	_, err := t.q.Exec(ctx,
		`UPDATE job_cards SET services_total = ?, parts_total = ?, tax_amount = ?, grand_total = ?, updated_at = ? WHERE id = ?`,
		totals.ServicesTotal, totals.PartsTotal, totals.TaxAmount, totals.GrandTotal, time.Now().UTC(), id)
	return err
}

func (t *txRepository) DeleteJob(ctx context.Context, id int64) error {
	if _, err := t.q.Exec(ctx, `DELETE FROM job_service_lines WHERE job_id = ?`, id); err != nil {
		return err
	}
	if _, err := t.q.Exec(ctx, `DELETE FROM job_part_lines WHERE job_id = ?`, id); err != nil {
		return err
	}
	_, err := t.q.Exec(ctx, `DELETE FROM job_cards WHERE id = ?`, id)
	return err
}

func (t *txRepository) GetVehicleForUpdate(ctx context.Context, id int64) (*fleet.Vehicle, error) {
	var v fleet.Vehicle
	err := t.q.QueryRow(ctx,
		`SELECT id, registration, model, customer_id, last_km, created_at, updated_at FROM vehicles WHERE id = ? FOR UPDATE`,
		id).
		Scan(&v.ID, &v.Registration, &v.Model, &v.CustomerID, &v.LastKM, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, fmt.Errorf("%w: vehicle %d", shared.ErrNotFound, id)
		}
		return nil, err
	}
	return &v, nil
}

func (t *txRepository) SetVehicleLastKM(ctx context.Context, vehicleID, km int64) error {
	_, err := t.q.Exec(ctx,
		`UPDATE vehicles SET last_km = ?, updated_at = ? WHERE id = ?`,
		km, time.Now().UTC(), vehicleID)
	return err
}

const serviceLineColumns = `id, job_id, service_id, name, price, qty`

func (t *txRepository) FindServiceLineByCatalog(ctx context.Context, jobID, serviceID int64) (*JobServiceLine, error) {
	var line JobServiceLine
	err := t.q.QueryRow(ctx,
		`SELECT `+serviceLineColumns+` FROM job_service_lines WHERE job_id = ? AND service_id = ?`,
		jobID, serviceID).
		Scan(&line.ID, &line.JobID, &line.ServiceID, &line.Name, &line.Price, &line.Qty)
	if errors.Is(err, db.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (t *txRepository) InsertServiceLine(ctx context.Context, line JobServiceLine) (int64, error) {
	return t.q.ExecInsert(ctx,
		`INSERT INTO job_service_lines (job_id, service_id, name, price, qty) VALUES (?, ?, ?, ?, ?)`,
		line.JobID, line.ServiceID, line.Name, line.Price, line.Qty)
}

func (t *txRepository) UpdateServiceLine(ctx context.Context, line JobServiceLine) error {
	_, err := t.q.Exec(ctx,
		`UPDATE job_service_lines SET price = ?, qty = ? WHERE id = ? AND job_id = ?`,
		line.Price, line.Qty, line.ID, line.JobID)
	return err
}

func (t *txRepository) DeleteServiceLine(ctx context.Context, jobID, lineID int64) (int64, error) {
	return t.q.Exec(ctx, `DELETE FROM job_service_lines WHERE id = ? AND job_id = ?`, lineID, jobID)
}

const partLineColumns = `id, job_id, part_id, name, part_number, price, qty`

func (t *txRepository) GetPartLine(ctx context.Context, jobID, lineID int64) (*JobPartLine, error) {
	var line JobPartLine
	err := t.q.QueryRow(ctx,
		`SELECT `+partLineColumns+` FROM job_part_lines WHERE id = ? AND job_id = ?`, lineID, jobID).
		Scan(&line.ID, &line.JobID, &line.PartID, &line.Name, &line.PartNumber, &line.Price, &line.Qty)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, fmt.Errorf("%w: part line %d on job %d", shared.ErrNotFound, lineID, jobID)
		}
		return nil, err
	}
	return &line, nil
}

func (t *txRepository) FindPartLineByCatalog(ctx context.Context, jobID, partID int64) (*JobPartLine, error) {
	var line JobPartLine
	err := t.q.QueryRow(ctx,
		`SELECT `+partLineColumns+` FROM job_part_lines WHERE job_id = ? AND part_id = ?`,
		jobID, partID).
		Scan(&line.ID, &line.JobID, &line.PartID, &line.Name, &line.PartNumber, &line.Price, &line.Qty)
	if errors.Is(err, db.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (t *txRepository) InsertPartLine(ctx context.Context, line JobPartLine) (int64, error) {
	return t.q.ExecInsert(ctx,
		`INSERT INTO job_part_lines (job_id, part_id, name, part_number, price, qty) VALUES (?, ?, ?, ?, ?, ?)`,
		line.JobID, line.PartID, line.Name, line.PartNumber, line.Price, line.Qty)
}

func (t *txRepository) UpdatePartLine(ctx context.Context, line JobPartLine) error {
	_, err := t.q.Exec(ctx,
		`UPDATE job_part_lines SET price = ?, qty = ? WHERE id = ? AND job_id = ?`,
		line.Price, line.Qty, line.ID, line.JobID)
	return err
}

func (t *txRepository) DeletePartLine(ctx context.Context, jobID, lineID int64) (int64, error) {
	return t.q.Exec(ctx, `DELETE FROM job_part_lines WHERE id = ? AND job_id = ?`, lineID, jobID)
}

func (t *txRepository) ListServiceLines(ctx context.Context, jobID int64) ([]JobServiceLine, error) {
	return listServiceLines(ctx, t.q, jobID)
}

func (t *txRepository) ListPartLines(ctx context.Context, jobID int64) ([]JobPartLine, error) {
	return listPartLines(ctx, t.q, jobID)
}

func (t *txRepository) GetCatalogService(ctx context.Context, id int64) (*catalog.ServiceItem, error) {
	return t.ledger.GetServiceItem(ctx, t.q, id)
}

func (t *txRepository) GetPartForUpdate(ctx context.Context, partID int64) (*catalog.Part, error) {
	return t.ledger.GetPartForUpdate(ctx, t.q, partID)
}

func (t *txRepository) DecrementStockIfAvailable(ctx context.Context, partID int64, qty int) (int, error) {
	return t.ledger.DecrementIfAvailable(ctx, t.q, partID, qty)
}

func (t *txRepository) IncrementStock(ctx context.Context, partID int64, qty int) (int, error) {
	return t.ledger.Increment(ctx, t.q, partID, qty)
}

func listServiceLines(ctx context.Context, q db.Executor, jobID int64) ([]JobServiceLine, error) {
	rows, err := q.Query(ctx,
		`SELECT `+serviceLineColumns+` FROM job_service_lines WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JobServiceLine
	for rows.Next() {
		var line JobServiceLine
		if err := rows.Scan(&line.ID, &line.JobID, &line.ServiceID, &line.Name, &line.Price, &line.Qty); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

func listPartLines(ctx context.Context, q db.Executor, jobID int64) ([]JobPartLine, error) {
	rows, err := q.Query(ctx,
		`SELECT `+partLineColumns+` FROM job_part_lines WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JobPartLine
	for rows.Next() {
		var line JobPartLine
		if err := rows.Scan(&line.ID, &line.JobID, &line.PartID, &line.Name, &line.PartNumber, &line.Price, &line.Qty); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}
