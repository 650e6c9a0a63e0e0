package billing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gearbox-ops/gearbox-ops/internal/jobcards"
	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

// Service implements invoice generation and composition.
type Service struct {
	logger  *slog.Logger
	repo    Repository
	jobs    jobcards.Repository
	taxRate jobcards.TaxRateProvider
	audit   *shared.AuditLogger
}

// NewService builds Service. audit may be nil when auditing is disabled.
func NewService(logger *slog.Logger, repo Repository, jobs jobcards.Repository, taxRate jobcards.TaxRateProvider, audit *shared.AuditLogger) *Service {
	return &Service{logger: logger, repo: repo, jobs: jobs, taxRate: taxRate, audit: audit}
}

// Get returns one invoice.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// GetByJob returns the invoice attached to a job.
func (s *Service) GetByJob(ctx context.Context, jobID int64) (*Invoice, error) {
	return s.repo.GetByJob(ctx, jobID)
}

// List returns invoices, newest first.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Invoice, int, error) {
	return s.repo.List(ctx, page, perPage)
}

// CanGenerateInvoice reports whether a job is ready to be invoiced: it must
// be COMPLETED, carry at least one line and have no invoice yet.
func (s *Service) CanGenerateInvoice(ctx context.Context, jobID int64) (EligibilityResponse, error) {
	var resp EligibilityResponse
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status != jobcards.StatusCompleted {
			resp.Reason = fmt.Sprintf("job is %s, not COMPLETED", job.Status)
			return nil
		}
		existing, err := tx.FindInvoiceByJob(ctx, jobID)
		if err != nil {
			return err
		}
		if existing != nil {
			resp.Reason = "job is already invoiced"
			return nil
		}
		lines, err := tx.CountLines(ctx, jobID)
		if err != nil {
			return err
		}
		if lines == 0 {
			resp.Reason = "job has no line items"
			return nil
		}
		resp.Eligible = true
		return nil
	})
	return resp, err
}

// GenerateInvoice creates the invoice for a job and flips it to BILLED in
// one transaction. It is idempotent: if the job is already invoiced the
// existing invoice is returned unchanged.
func (s *Service) GenerateInvoice(ctx context.Context, jobID int64) (*Invoice, error) {
	var result *Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		existing, err := tx.FindInvoiceByJob(ctx, jobID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			return nil
		}
		if job.Status != jobcards.StatusCompleted && job.Status != jobcards.StatusBilled {
			return fmt.Errorf("%w: job is %s, cannot invoice", shared.ErrBilling, job.Status)
		}
		lines, err := tx.CountLines(ctx, jobID)
		if err != nil {
			return err
		}
		if lines == 0 {
			return fmt.Errorf("%w: job %d has no line items", shared.ErrBilling, jobID)
		}
		now := time.Now().UTC()
		inv := Invoice{
			InvoiceNo: InvoiceNumber(now, jobID),
			JobID:     jobID,
			CreatedAt: now,
		}
		inv.ID, err = tx.InsertInvoice(ctx, inv)
		if err != nil {
			return err
		}
		if err := tx.SetJobBilled(ctx, jobID); err != nil {
			return err
		}
		result = &inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "invoice.generate", result.ID, map[string]any{"job_id": jobID, "invoice_no": result.InvoiceNo})
	return result, nil
}

// ComposeInvoiceView joins the invoice with its job, lines and the current
// tax rate. The stored job totals reflect the rate at billing time; the
// view recalculates with the live rate.
func (s *Service) ComposeInvoiceView(ctx context.Context, invoiceID int64) (*InvoiceView, error) {
	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	job, err := s.jobs.Get(ctx, inv.JobID)
	if err != nil {
		return nil, err
	}
	services, err := s.jobs.ListServiceLines(ctx, inv.JobID)
	if err != nil {
		return nil, err
	}
	parts, err := s.jobs.ListPartLines(ctx, inv.JobID)
	if err != nil {
		return nil, err
	}
	rate, err := s.taxRate.GetTaxRatePercent(ctx)
	if err != nil {
		return nil, err
	}
	totals := jobcards.ComputeTotals(services, parts, rate)
	return &InvoiceView{
		Invoice:        *inv,
		Job:            *job,
		Services:       services,
		Parts:          parts,
		Subtotal:       totals.ServicesTotal + totals.PartsTotal,
		TaxRatePercent: rate,
		TaxAmount:      totals.TaxAmount,
		GrandTotal:     totals.GrandTotal,
	}, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, invoiceID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	actor := shared.ActorFromContext(ctx)
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "invoice",
		EntityID: strconv.FormatInt(invoiceID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
