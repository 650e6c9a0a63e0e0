package billing

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gearbox-ops/gearbox-ops/internal/jobcards"
	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

type mutableTaxRate struct {
	rate float64
}

func (m *mutableTaxRate) GetTaxRatePercent(context.Context) (float64, error) {
	return m.rate, nil
}

// memoryRepo implements Repository and TxRepository over maps.
type memoryRepo struct {
	nextID       int64
	jobs         map[int64]*jobcards.JobCard
	serviceLines map[int64][]jobcards.JobServiceLine
	partLines    map[int64][]jobcards.JobPartLine
	invoices     map[int64]*Invoice
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		nextID:       1,
		jobs:         map[int64]*jobcards.JobCard{},
		serviceLines: map[int64][]jobcards.JobServiceLine{},
		partLines:    map[int64][]jobcards.JobPartLine{},
		invoices:     map[int64]*Invoice{},
	}
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	copied := *inv
	return &copied, nil
}

func (m *memoryRepo) GetByJob(_ context.Context, jobID int64) (*Invoice, error) {
	for _, inv := range m.invoices {
		if inv.JobID == jobID {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: invoice for job %d", shared.ErrNotFound, jobID)
}

func (m *memoryRepo) List(_ context.Context, _, _ int) ([]Invoice, int, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		out = append(out, *inv)
	}
	return out, len(out), nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) GetJobForUpdate(_ context.Context, jobID int64) (*jobcards.JobCard, error) {
	job, ok := m.jobs[jobID]
	if !ok || job.DeletedAt != nil {
		return nil, fmt.Errorf("%w: job %d", shared.ErrNotFound, jobID)
	}
	copied := *job
	return &copied, nil
}

func (m *memoryRepo) CountLines(_ context.Context, jobID int64) (int, error) {
	return len(m.serviceLines[jobID]) + len(m.partLines[jobID]), nil
}

func (m *memoryRepo) FindInvoiceByJob(_ context.Context, jobID int64) (*Invoice, error) {
	for _, inv := range m.invoices {
		if inv.JobID == jobID {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memoryRepo) InsertInvoice(_ context.Context, inv Invoice) (int64, error) {
	for _, existing := range m.invoices {
		if existing.JobID == inv.JobID {
			return 0, fmt.Errorf("%w: job %d is already invoiced", shared.ErrConflict, inv.JobID)
		}
	}
	inv.ID = m.nextID
	m.nextID++
	m.invoices[inv.ID] = &inv
	return inv.ID, nil
}

func (m *memoryRepo) SetJobBilled(_ context.Context, jobID int64) error {
	m.jobs[jobID].Status = jobcards.StatusBilled
	return nil
}

// fakeJobs gives the service read access to the same maps; the embedded
// interface covers the methods these tests never hit.
type fakeJobs struct {
	jobcards.Repository
	repo *memoryRepo
}

func (f *fakeJobs) Get(_ context.Context, id int64) (*jobcards.JobCard, error) {
	job, ok := f.repo.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: job %d", shared.ErrNotFound, id)
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobs) ListServiceLines(_ context.Context, jobID int64) ([]jobcards.JobServiceLine, error) {
	return f.repo.serviceLines[jobID], nil
}

func (f *fakeJobs) ListPartLines(_ context.Context, jobID int64) ([]jobcards.JobPartLine, error) {
	return f.repo.partLines[jobID], nil
}

func newTestService(repo *memoryRepo, rate *mutableTaxRate) *Service {
	return NewService(slog.Default(), repo, &fakeJobs{repo: repo}, rate, nil)
}

func seedCompletedJob(repo *memoryRepo, withLine bool) *jobcards.JobCard {
	job := &jobcards.JobCard{ID: repo.nextID, Status: jobcards.StatusCompleted}
	repo.nextID++
	repo.jobs[job.ID] = job
	if withLine {
		repo.serviceLines[job.ID] = []jobcards.JobServiceLine{
			{ID: 1, JobID: job.ID, ServiceID: 9, Name: "General service", Price: 500, Qty: 1},
		}
	}
	return job
}

func TestGenerateInvoiceIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &mutableTaxRate{rate: 18})
	job := seedCompletedJob(repo, true)
	ctx := context.Background()

	first, err := svc.GenerateInvoice(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, jobcards.StatusBilled, repo.jobs[job.ID].Status)

	second, err := svc.GenerateInvoice(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.InvoiceNo, second.InvoiceNo)
	require.Len(t, repo.invoices, 1)
}

func TestGenerateInvoiceRequiresCompletedJobWithLines(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &mutableTaxRate{rate: 18})
	ctx := context.Background()

	open := seedCompletedJob(repo, true)
	open.Status = jobcards.StatusOpen
	_, err := svc.GenerateInvoice(ctx, open.ID)
	require.ErrorIs(t, err, shared.ErrBilling)

	empty := seedCompletedJob(repo, false)
	_, err = svc.GenerateInvoice(ctx, empty.ID)
	require.ErrorIs(t, err, shared.ErrBilling)
	require.Equal(t, jobcards.StatusCompleted, repo.jobs[empty.ID].Status)
}

func TestCanGenerateInvoiceReportsReason(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &mutableTaxRate{rate: 18})
	ctx := context.Background()

	job := seedCompletedJob(repo, true)
	resp, err := svc.CanGenerateInvoice(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, resp.Eligible)

	_, err = svc.GenerateInvoice(ctx, job.ID)
	require.NoError(t, err)

	resp, err = svc.CanGenerateInvoice(ctx, job.ID)
	require.NoError(t, err)
	require.False(t, resp.Eligible)
	require.Equal(t, "job is BILLED, not COMPLETED", resp.Reason)

	empty := seedCompletedJob(repo, false)
	resp, err = svc.CanGenerateInvoice(ctx, empty.ID)
	require.NoError(t, err)
	require.False(t, resp.Eligible)
	require.Equal(t, "job has no line items", resp.Reason)
}

func TestComposeInvoiceViewUsesLiveTaxRate(t *testing.T) {
	repo := newMemoryRepo()
	rate := &mutableTaxRate{rate: 18}
	svc := newTestService(repo, rate)
	job := seedCompletedJob(repo, true)
	ctx := context.Background()

	inv, err := svc.GenerateInvoice(ctx, job.ID)
	require.NoError(t, err)

	view, err := svc.ComposeInvoiceView(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, 500.0, view.Subtotal)
	require.Equal(t, 90.0, view.TaxAmount)
	require.Equal(t, 590.0, view.GrandTotal)

	rate.rate = 20
	view, err = svc.ComposeInvoiceView(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, 100.0, view.TaxAmount)
	require.Equal(t, 600.0, view.GrandTotal)
}

func TestInvoiceNumberIsDeterministic(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	require.Equal(t, "INV-20260314-0042", InvoiceNumber(at, 42))
	require.Equal(t, InvoiceNumber(at, 42), InvoiceNumber(at.Add(5*time.Hour), 42))
}
