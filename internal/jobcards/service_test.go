package jobcards

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gearbox-ops/gearbox-ops/internal/catalog"
	"github.com/gearbox-ops/gearbox-ops/internal/fleet"
	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

type fixedTaxRate float64

func (f fixedTaxRate) GetTaxRatePercent(context.Context) (float64, error) {
	return float64(f), nil
}

// memoryRepo implements both Repository and TxRepository; WithTx hands the
// callback the repo itself, which is enough for single-threaded tests.
type memoryRepo struct {
	nextID       int64
	jobs         map[int64]*JobCard
	vehicles     map[int64]*fleet.Vehicle
	serviceLines map[int64]*JobServiceLine
	partLines    map[int64]*JobPartLine
	catalogSvc   map[int64]catalog.ServiceItem
	parts        map[int64]*catalog.Part
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		nextID:       1,
		jobs:         map[int64]*JobCard{},
		vehicles:     map[int64]*fleet.Vehicle{},
		serviceLines: map[int64]*JobServiceLine{},
		partLines:    map[int64]*JobPartLine{},
		catalogSvc:   map[int64]catalog.ServiceItem{},
		parts:        map[int64]*catalog.Part{},
	}
}

func (m *memoryRepo) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*JobCard, error) {
	job, ok := m.jobs[id]
	if !ok || job.DeletedAt != nil {
		return nil, fmt.Errorf("%w: job %d", shared.ErrNotFound, id)
	}
	copied := *job
	return &copied, nil
}

func (m *memoryRepo) List(_ context.Context, req ListJobsRequest) ([]JobCard, int, error) {
	var out []JobCard
	for _, job := range m.jobs {
		if job.DeletedAt != nil {
			continue
		}
		if req.Status != "" && job.Status != req.Status {
			continue
		}
		out = append(out, *job)
	}
	return out, len(out), nil
}

func (m *memoryRepo) ListActiveIDs(_ context.Context) ([]int64, error) {
	var ids []int64
	for id, job := range m.jobs {
		if job.DeletedAt == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) SoftDelete(_ context.Context, id int64, at time.Time) error {
	job, ok := m.jobs[id]
	if !ok || job.DeletedAt != nil {
		return fmt.Errorf("%w: job %d", shared.ErrNotFound, id)
	}
	job.DeletedAt = &at
	return nil
}

func (m *memoryRepo) Restore(_ context.Context, id int64) error {
	job, ok := m.jobs[id]
	if !ok || job.DeletedAt == nil {
		return fmt.Errorf("%w: trashed job %d", shared.ErrNotFound, id)
	}
	job.DeletedAt = nil
	return nil
}

func (m *memoryRepo) ListTrashed(_ context.Context) ([]JobCard, error) {
	var out []JobCard
	for _, job := range m.jobs {
		if job.DeletedAt != nil {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *memoryRepo) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	for id, job := range m.jobs {
		if job.DeletedAt != nil && job.DeletedAt.Before(cutoff) {
			delete(m.jobs, id)
			purged++
		}
	}
	return purged, nil
}

func (m *memoryRepo) GetJobForUpdate(ctx context.Context, id int64) (*JobCard, error) {
	job, ok := m.jobs[id]
	if !ok || job.DeletedAt != nil {
		return nil, fmt.Errorf("%w: job %d", shared.ErrNotFound, id)
	}
	copied := *job
	return &copied, nil
}

func (m *memoryRepo) InsertJob(_ context.Context, job JobCard) (int64, error) {
	job.ID = m.id()
	job.CreatedAt = time.Now().UTC()
	job.UpdatedAt = job.CreatedAt
	m.jobs[job.ID] = &job
	return job.ID, nil
}

func (m *memoryRepo) SaveStatus(_ context.Context, job *JobCard) error {
	stored, ok := m.jobs[job.ID]
	if !ok {
		return fmt.Errorf("%w: job %d", shared.ErrNotFound, job.ID)
	}
	stored.Status = job.Status
	stored.StartedAt = job.StartedAt
	stored.CompletedAt = job.CompletedAt
	return nil
}

func (m *memoryRepo) SetMechanic(_ context.Context, id int64, mechanicID *int64) error {
	m.jobs[id].MechanicID = mechanicID
	return nil
}

func (m *memoryRepo) UpdateNotes(_ context.Context, id int64, notes string) error {
	m.jobs[id].MechanicNotes = notes
	return nil
}

func (m *memoryRepo) UpdateTotals(_ context.Context, id int64, totals Totals) error {
	job := m.jobs[id]
	job.ServicesTotal = totals.ServicesTotal
	job.PartsTotal = totals.PartsTotal
	job.TaxAmount = totals.TaxAmount
	job.GrandTotal = totals.GrandTotal
	return nil
}

func (m *memoryRepo) DeleteJob(_ context.Context, id int64) error {
	for lineID, line := range m.serviceLines {
		if line.JobID == id {
			delete(m.serviceLines, lineID)
		}
	}
	for lineID, line := range m.partLines {
		if line.JobID == id {
			delete(m.partLines, lineID)
		}
	}
	delete(m.jobs, id)
	return nil
}

func (m *memoryRepo) GetVehicleForUpdate(_ context.Context, id int64) (*fleet.Vehicle, error) {
	v, ok := m.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("%w: vehicle %d", shared.ErrNotFound, id)
	}
	copied := *v
	return &copied, nil
}

func (m *memoryRepo) SetVehicleLastKM(_ context.Context, vehicleID, km int64) error {
	m.vehicles[vehicleID].LastKM = km
	return nil
}

func (m *memoryRepo) FindServiceLineByCatalog(_ context.Context, jobID, serviceID int64) (*JobServiceLine, error) {
	for _, line := range m.serviceLines {
		if line.JobID == jobID && line.ServiceID == serviceID {
			copied := *line
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memoryRepo) InsertServiceLine(_ context.Context, line JobServiceLine) (int64, error) {
	line.ID = m.id()
	m.serviceLines[line.ID] = &line
	return line.ID, nil
}

func (m *memoryRepo) UpdateServiceLine(_ context.Context, line JobServiceLine) error {
	stored := m.serviceLines[line.ID]
	stored.Price = line.Price
	stored.Qty = line.Qty
	return nil
}

func (m *memoryRepo) DeleteServiceLine(_ context.Context, jobID, lineID int64) (int64, error) {
	line, ok := m.serviceLines[lineID]
	if !ok || line.JobID != jobID {
		return 0, nil
	}
	delete(m.serviceLines, lineID)
	return 1, nil
}

func (m *memoryRepo) GetPartLine(_ context.Context, jobID, lineID int64) (*JobPartLine, error) {
	line, ok := m.partLines[lineID]
	if !ok || line.JobID != jobID {
		return nil, fmt.Errorf("%w: part line %d on job %d", shared.ErrNotFound, lineID, jobID)
	}
	copied := *line
	return &copied, nil
}

func (m *memoryRepo) FindPartLineByCatalog(_ context.Context, jobID, partID int64) (*JobPartLine, error) {
	for _, line := range m.partLines {
		if line.JobID == jobID && line.PartID == partID {
			copied := *line
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memoryRepo) InsertPartLine(_ context.Context, line JobPartLine) (int64, error) {
	line.ID = m.id()
	m.partLines[line.ID] = &line
	return line.ID, nil
}

func (m *memoryRepo) UpdatePartLine(_ context.Context, line JobPartLine) error {
	stored := m.partLines[line.ID]
	stored.Price = line.Price
	stored.Qty = line.Qty
	return nil
}

func (m *memoryRepo) DeletePartLine(_ context.Context, jobID, lineID int64) (int64, error) {
	line, ok := m.partLines[lineID]
	if !ok || line.JobID != jobID {
		return 0, nil
	}
	delete(m.partLines, lineID)
	return 1, nil
}

func (m *memoryRepo) ListServiceLines(_ context.Context, jobID int64) ([]JobServiceLine, error) {
	var out []JobServiceLine
	for _, line := range m.serviceLines {
		if line.JobID == jobID {
			out = append(out, *line)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListPartLines(_ context.Context, jobID int64) ([]JobPartLine, error) {
	var out []JobPartLine
	for _, line := range m.partLines {
		if line.JobID == jobID {
			out = append(out, *line)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetCatalogService(_ context.Context, id int64) (*catalog.ServiceItem, error) {
	item, ok := m.catalogSvc[id]
	if !ok {
		return nil, fmt.Errorf("%w: catalog service %d", shared.ErrNotFound, id)
	}
	return &item, nil
}

func (m *memoryRepo) GetPartForUpdate(_ context.Context, partID int64) (*catalog.Part, error) {
	part, ok := m.parts[partID]
	if !ok {
		return nil, fmt.Errorf("%w: part %d", shared.ErrNotFound, partID)
	}
	copied := *part
	return &copied, nil
}

func (m *memoryRepo) DecrementStockIfAvailable(_ context.Context, partID int64, qty int) (int, error) {
	part := m.parts[partID]
	if part.StockQty < qty {
		return part.StockQty, fmt.Errorf("%w: part %s has %d in stock, requested %d",
			shared.ErrInsufficientStock, part.PartNumber, part.StockQty, qty)
	}
	part.StockQty -= qty
	return part.StockQty, nil
}

func (m *memoryRepo) IncrementStock(_ context.Context, partID int64, qty int) (int, error) {
	part := m.parts[partID]
	part.StockQty += qty
	return part.StockQty, nil
}

func newTestService(repo *memoryRepo, rate float64) *Service {
	return NewService(slog.Default(), repo, fixedTaxRate(rate), nil)
}

func adminCtx() context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{ID: 1, Role: shared.RoleAdmin})
}

func mechanicCtx() context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{ID: 2, Role: shared.RoleMechanic})
}

func seedVehicle(repo *memoryRepo, lastKM int64) *fleet.Vehicle {
	v := &fleet.Vehicle{ID: repo.id(), Registration: "KA-05-MJ-9", Model: "Alto", CustomerID: 7, LastKM: lastKM}
	repo.vehicles[v.ID] = v
	return v
}

func seedOpenJob(t *testing.T, svc *Service, repo *memoryRepo) *JobCard {
	t.Helper()
	v := seedVehicle(repo, 10000)
	job, err := svc.Create(adminCtx(), CreateJobRequest{VehicleID: v.ID, Complaint: "engine noise", OdometerKM: 10500})
	require.NoError(t, err)
	return job
}

func TestCanTransitionTable(t *testing.T) {
	cases := []struct {
		role shared.Role
		from JobStatus
		to   JobStatus
		want error
	}{
		{shared.RoleMechanic, StatusOpen, StatusInProgress, nil},
		{shared.RoleMechanic, StatusInProgress, StatusCompleted, nil},
		{shared.RoleMechanic, StatusOpen, StatusCompleted, shared.ErrInvalidTransition},
		{shared.RoleMechanic, StatusOpen, StatusBilled, shared.ErrUnauthorized},
		{shared.RoleMechanic, StatusInProgress, StatusBilled, shared.ErrUnauthorized},
		{shared.RoleMechanic, StatusCompleted, StatusBilled, shared.ErrUnauthorized},
		{shared.RoleMechanic, StatusInProgress, StatusOpen, shared.ErrInvalidTransition},
		{shared.RoleAdmin, StatusOpen, StatusInProgress, nil},
		{shared.RoleAdmin, StatusOpen, StatusCompleted, nil},
		{shared.RoleAdmin, StatusOpen, StatusBilled, nil},
		{shared.RoleAdmin, StatusInProgress, StatusBilled, nil},
		{shared.RoleAdmin, StatusCompleted, StatusBilled, nil},
		{shared.RoleAdmin, StatusCompleted, StatusOpen, shared.ErrInvalidTransition},
		{shared.RoleAdmin, StatusBilled, StatusCompleted, shared.ErrInvalidTransition},
		{shared.RoleAdmin, StatusBilled, StatusBilled, shared.ErrInvalidTransition},
		{shared.RoleAdmin, StatusOpen, JobStatus("CANCELLED"), shared.ErrInvalidTransition},
	}
	for _, tc := range cases {
		name := fmt.Sprintf("%s_%s_to_%s", tc.role, tc.from, tc.to)
		t.Run(name, func(t *testing.T) {
			err := CanTransition(tc.role, tc.from, tc.to)
			if tc.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestCreateJobValidatesOdometer(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, 18)
	v := seedVehicle(repo, 10000)

	_, err := svc.Create(adminCtx(), CreateJobRequest{VehicleID: v.ID, Complaint: "brakes", OdometerKM: 9000})
	require.ErrorIs(t, err, shared.ErrValidation)

	job, err := svc.Create(adminCtx(), CreateJobRequest{VehicleID: v.ID, Complaint: "brakes", OdometerKM: 10500})
	require.NoError(t, err)
	require.Equal(t, StatusOpen, job.Status)
	require.Equal(t, int64(10500), repo.vehicles[v.ID].LastKM)
}

func TestMechanicStepsForwardOneStateAtATime(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, 18)
	job := seedOpenJob(t, svc, repo)

	_, err := svc.TransitionStatus(mechanicCtx(), job.ID, StatusCompleted)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	started, err := svc.TransitionStatus(mechanicCtx(), job.ID, StatusInProgress)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, started.Status)
	require.NotNil(t, started.StartedAt)

	_, err = svc.TransitionStatus(mechanicCtx(), job.ID, StatusBilled)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestStatusStampsSetOnce(t *testing.T) {
	now := time.Now().UTC()
	earlier := now.Add(-time.Hour)
	job := &JobCard{Status: StatusOpen, StartedAt: &earlier}

	applyStatus(job, StatusInProgress, now)
	require.Equal(t, earlier, *job.StartedAt)

	applyStatus(job, StatusCompleted, now)
	require.Equal(t, now, *job.CompletedAt)

	later := now.Add(time.Hour)
	applyStatus(job, StatusCompleted, later)
	require.Equal(t, now, *job.CompletedAt)
}

func TestBilledJobIsImmutable(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, 18)
	job := seedOpenJob(t, svc, repo)
	repo.catalogSvc[99] = catalog.ServiceItem{ID: 99, Name: "Oil change", Price: 300}

	_, err := svc.TransitionStatus(adminCtx(), job.ID, StatusBilled)
	require.NoError(t, err)

	_, err = svc.AddService(adminCtx(), job.ID, AddServiceRequest{ServiceID: 99, Price: 300, Qty: 1})
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	_, err = svc.UpdateNotes(adminCtx(), job.ID, "late note")
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	_, err = svc.TransitionStatus(adminCtx(), job.ID, StatusCompleted)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestAssignMechanicAutoStartsOpenJob(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, 18)
	job := seedOpenJob(t, svc, repo)

	mech := int64(42)
	assigned, err := svc.AssignMechanic(adminCtx(), job.ID, &mech)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, assigned.Status)
	require.NotNil(t, assigned.StartedAt)
	require.Equal(t, mech, *assigned.MechanicID)

	_, err = svc.TransitionStatus(adminCtx(), job.ID, StatusCompleted)
	require.NoError(t, err)
	_, err = svc.AssignMechanic(adminCtx(), job.ID, &mech)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestAddPartRejectsInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, 18)
	job := seedOpenJob(t, svc, repo)
	repo.parts[5] = &catalog.Part{ID: 5, Name: "Brake pad", PartNumber: "BP-100", UnitPrice: 250, StockQty: 5}

	_, err := svc.AddPart(adminCtx(), job.ID, AddPartRequest{PartID: 5, Price: 250, Qty: 5})
	require.NoError(t, err)
	require.Equal(t, 0, repo.parts[5].StockQty)

	_, err = svc.AddPart(adminCtx(), job.ID, AddPartRequest{PartID: 5, Price: 250, Qty: 1})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Equal(t, 0, repo.parts[5].StockQty)
}

func TestRemovePartRestoresStockExactlyOnce(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, 18)
	job := seedOpenJob(t, svc, repo)
	repo.parts[5] = &catalog.Part{ID: 5, Name: "Brake pad", PartNumber: "BP-100", UnitPrice: 250, StockQty: 5}

	detail, err := svc.AddPart(adminCtx(), job.ID, AddPartRequest{PartID: 5, Price: 250, Qty: 3})
	require.NoError(t, err)
	require.Equal(t, 2, repo.parts[5].StockQty)
	lineID := detail.Parts[0].ID

	_, err = svc.RemovePart(adminCtx(), job.ID, lineID)
	require.NoError(t, err)
	require.Equal(t, 5, repo.parts[5].StockQty)

	_, err = svc.RemovePart(adminCtx(), job.ID, lineID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Equal(t, 5, repo.parts[5].StockQty)
}

func TestAddServiceMergesDuplicateCatalogLine(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, 18)
	job := seedOpenJob(t, svc, repo)
	repo.catalogSvc[7] = catalog.ServiceItem{ID: 7, Name: "Wheel alignment", Price: 800}

	_, err := svc.AddService(adminCtx(), job.ID, AddServiceRequest{ServiceID: 7, Price: 800, Qty: 1})
	require.NoError(t, err)

	detail, err := svc.AddService(adminCtx(), job.ID, AddServiceRequest{ServiceID: 7, Price: 750, Qty: 2})
	require.NoError(t, err)
	require.Len(t, detail.Services, 1)
	require.Equal(t, 3, detail.Services[0].Qty)
	require.Equal(t, 750.0, detail.Services[0].Price)
}

func TestRecomputeTotals(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, 18)
	job := seedOpenJob(t, svc, repo)
	repo.catalogSvc[7] = catalog.ServiceItem{ID: 7, Name: "General service", Price: 500}

	detail, err := svc.AddService(adminCtx(), job.ID, AddServiceRequest{ServiceID: 7, Price: 500, Qty: 1})
	require.NoError(t, err)
	require.Equal(t, 500.0, detail.Job.ServicesTotal)
	require.Equal(t, 0.0, detail.Job.PartsTotal)
	require.Equal(t, 90.0, detail.Job.TaxAmount)
	require.Equal(t, 590.0, detail.Job.GrandTotal)

	again, err := svc.Recompute(adminCtx(), job.ID)
	require.NoError(t, err)
	require.Equal(t, 590.0, again.GrandTotal)
}

func TestHardDeleteOnlyWhileOpen(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, 18)
	job := seedOpenJob(t, svc, repo)
	repo.parts[5] = &catalog.Part{ID: 5, Name: "Air filter", PartNumber: "AF-2", UnitPrice: 120, StockQty: 4}

	_, err := svc.AddPart(adminCtx(), job.ID, AddPartRequest{PartID: 5, Price: 120, Qty: 2})
	require.NoError(t, err)
	require.Equal(t, 2, repo.parts[5].StockQty)

	require.NoError(t, svc.Delete(adminCtx(), job.ID, true))
	require.Equal(t, 4, repo.parts[5].StockQty)
	_, err = svc.Get(adminCtx(), job.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	other := seedOpenJob(t, svc, repo)
	_, err = svc.TransitionStatus(adminCtx(), other.ID, StatusInProgress)
	require.NoError(t, err)
	err = svc.Delete(adminCtx(), other.ID, true)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSoftDeleteAndRestore(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, 18)
	job := seedOpenJob(t, svc, repo)

	require.NoError(t, svc.Delete(adminCtx(), job.ID, false))
	_, err := svc.Get(adminCtx(), job.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, svc.Restore(adminCtx(), job.ID))
	restored, err := svc.Get(adminCtx(), job.ID)
	require.NoError(t, err)
	require.Nil(t, restored.DeletedAt)
}

func TestReconcileTotalsFixesDrift(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, 18)
	job := seedOpenJob(t, svc, repo)
	repo.catalogSvc[7] = catalog.ServiceItem{ID: 7, Name: "General service", Price: 500}

	_, err := svc.AddService(adminCtx(), job.ID, AddServiceRequest{ServiceID: 7, Price: 500, Qty: 1})
	require.NoError(t, err)

	// Simulate a totals column drifting out from under the lines.
	repo.jobs[job.ID].GrandTotal = 9999

	drifted, err := svc.ReconcileTotals(adminCtx())
	require.NoError(t, err)
	require.Equal(t, []int64{job.ID}, drifted)
	require.Equal(t, 590.0, repo.jobs[job.ID].GrandTotal)

	drifted, err = svc.ReconcileTotals(adminCtx())
	require.NoError(t, err)
	require.Empty(t, drifted)
}
