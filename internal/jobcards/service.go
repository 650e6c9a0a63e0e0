package jobcards

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

// TaxRateProvider supplies the current tax rate percentage. Totals always
// read it fresh so a settings change shows up on the next recompute.
type TaxRateProvider interface {
	GetTaxRatePercent(ctx context.Context) (float64, error)
}

// Service implements the job-card lifecycle, line management and totals.
type Service struct {
	logger  *slog.Logger
	repo    Repository
	taxRate TaxRateProvider
	audit   *shared.AuditLogger
}

// NewService builds Service. audit may be nil when auditing is disabled.
func NewService(logger *slog.Logger, repo Repository, taxRate TaxRateProvider, audit *shared.AuditLogger) *Service {
	return &Service{logger: logger, repo: repo, taxRate: taxRate, audit: audit}
}

// Create validates the odometer against the vehicle's last recorded reading
// and inserts the job in one transaction. The vehicle row is locked so two
// concurrent intakes cannot both pass the check.
func (s *Service) Create(ctx context.Context, req CreateJobRequest) (*JobCard, error) {
	var jobID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		vehicle, err := tx.GetVehicleForUpdate(ctx, req.VehicleID)
		if err != nil {
			return err
		}
		if req.OdometerKM < vehicle.LastKM {
			return fmt.Errorf("%w: odometer %d is below the vehicle's last reading %d",
				shared.ErrValidation, req.OdometerKM, vehicle.LastKM)
		}
		jobID, err = tx.InsertJob(ctx, JobCard{
			VehicleID:  vehicle.ID,
			CustomerID: vehicle.CustomerID,
			OdometerKM: req.OdometerKM,
			Complaint:  req.Complaint,
			Status:     StatusOpen,
		})
		if err != nil {
			return err
		}
		return tx.SetVehicleLastKM(ctx, vehicle.ID, req.OdometerKM)
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "job.create", jobID, nil)
	return s.repo.Get(ctx, jobID)
}

// Get returns one active job.
func (s *Service) Get(ctx context.Context, id int64) (*JobCard, error) {
	return s.repo.Get(ctx, id)
}

// GetDetail returns a job with its service and part lines.
func (s *Service) GetDetail(ctx context.Context, id int64) (*JobDetail, error) {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	services, err := s.repo.ListServiceLines(ctx, id)
	if err != nil {
		return nil, err
	}
	parts, err := s.repo.ListPartLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return &JobDetail{Job: *job, Services: services, Parts: parts}, nil
}

// List returns active jobs matching the filters.
func (s *Service) List(ctx context.Context, req ListJobsRequest) ([]JobCard, int, error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, string(req.Status))
	}
	return s.repo.List(ctx, req)
}

// TransitionStatus moves a job to the target status on behalf of the
// calling actor. The current status is read under a row lock so a
// concurrent transition cannot slip between the check and the write.
// Entering IN_PROGRESS or COMPLETED stamps the matching timestamp once;
// re-entry by an admin keeps the original stamp.
func (s *Service) TransitionStatus(ctx context.Context, jobID int64, target JobStatus) (*JobCard, error) {
	actor := shared.ActorFromContext(ctx)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if err := CanTransition(actor.Role, job.Status, target); err != nil {
			return err
		}
		applyStatus(job, target, time.Now().UTC())
		return tx.SaveStatus(ctx, job)
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "job.transition", jobID, map[string]any{"to": string(target)})
	return s.repo.Get(ctx, jobID)
}

// applyStatus mutates the job to the target, stamping started_at and
// completed_at on first entry only.
func applyStatus(job *JobCard, target JobStatus, now time.Time) {
	job.Status = target
	switch target {
	case StatusInProgress:
		if job.StartedAt == nil {
			job.StartedAt = &now
		}
	case StatusCompleted:
		if job.CompletedAt == nil {
			job.CompletedAt = &now
		}
	}
}

// AssignMechanic sets or clears the mechanic on a job. Assigning a mechanic
// to an OPEN job also starts it. Completed and billed jobs reject
// reassignment.
func (s *Service) AssignMechanic(ctx context.Context, jobID int64, mechanicID *int64) (*JobCard, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status == StatusCompleted || job.Status == StatusBilled {
			return fmt.Errorf("%w: cannot reassign a %s job", shared.ErrInvalidTransition, job.Status)
		}
		if err := tx.SetMechanic(ctx, jobID, mechanicID); err != nil {
			return err
		}
		if mechanicID != nil && job.Status == StatusOpen {
			applyStatus(job, StatusInProgress, time.Now().UTC())
			return tx.SaveStatus(ctx, job)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "job.assign", jobID, map[string]any{"mechanic_id": mechanicID})
	return s.repo.Get(ctx, jobID)
}

// UpdateNotes edits the mechanic notes. Billed jobs are immutable; once a
// job is completed only an admin may still touch the notes.
func (s *Service) UpdateNotes(ctx context.Context, jobID int64, notes string) (*JobCard, error) {
	actor := shared.ActorFromContext(ctx)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status == StatusBilled {
			return fmt.Errorf("%w: job %d is billed", shared.ErrInvalidTransition, jobID)
		}
		if job.Status == StatusCompleted && !actor.Role.IsAdmin() {
			return fmt.Errorf("%w: only admins may edit notes on a completed job", shared.ErrUnauthorized)
		}
		return tx.UpdateNotes(ctx, jobID, notes)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, jobID)
}

// AddService merges the request into an existing line for the same catalog
// service, summing quantity and taking the latest price, or inserts a new
// line with the catalog name snapshotted. Totals are recomputed in the same
// transaction.
func (s *Service) AddService(ctx context.Context, jobID int64, req AddServiceRequest) (*JobDetail, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := s.mutableJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		item, err := tx.GetCatalogService(ctx, req.ServiceID)
		if err != nil {
			return err
		}
		existing, err := tx.FindServiceLineByCatalog(ctx, job.ID, item.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.Qty += req.Qty
			existing.Price = req.Price
			if err := tx.UpdateServiceLine(ctx, *existing); err != nil {
				return err
			}
		} else {
			_, err = tx.InsertServiceLine(ctx, JobServiceLine{
				JobID:     job.ID,
				ServiceID: item.ID,
				Name:      item.Name,
				Price:     req.Price,
				Qty:       req.Qty,
			})
			if err != nil {
				return err
			}
		}
		return s.recompute(ctx, tx, job.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetDetail(ctx, jobID)
}

// RemoveService deletes a service line scoped to the job and recomputes.
func (s *Service) RemoveService(ctx context.Context, jobID, lineID int64) (*JobDetail, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := s.mutableJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		affected, err := tx.DeleteServiceLine(ctx, job.ID, lineID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: service line %d on job %d", shared.ErrNotFound, lineID, jobID)
		}
		return s.recompute(ctx, tx, job.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetDetail(ctx, jobID)
}

// AddPart takes req.Qty units from stock and merges or inserts the part
// line. The part row stays locked from the stock check until commit, so
// concurrent adds on the same part cannot oversell.
func (s *Service) AddPart(ctx context.Context, jobID int64, req AddPartRequest) (*JobDetail, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := s.mutableJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		part, err := tx.GetPartForUpdate(ctx, req.PartID)
		if err != nil {
			return err
		}
		if _, err := tx.DecrementStockIfAvailable(ctx, part.ID, req.Qty); err != nil {
			return err
		}
		existing, err := tx.FindPartLineByCatalog(ctx, job.ID, part.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.Qty += req.Qty
			existing.Price = req.Price
			if err := tx.UpdatePartLine(ctx, *existing); err != nil {
				return err
			}
		} else {
			_, err = tx.InsertPartLine(ctx, JobPartLine{
				JobID:      job.ID,
				PartID:     part.ID,
				Name:       part.Name,
				PartNumber: part.PartNumber,
				Price:      req.Price,
				Qty:        req.Qty,
			})
			if err != nil {
				return err
			}
		}
		return s.recompute(ctx, tx, job.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetDetail(ctx, jobID)
}

// RemovePart deletes a part line and restores its quantity to stock. The
// delete's row count gates the restore, so a duplicate removal of the same
// line cannot restore stock twice.
func (s *Service) RemovePart(ctx context.Context, jobID, lineID int64) (*JobDetail, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := s.mutableJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		line, err := tx.GetPartLine(ctx, job.ID, lineID)
		if err != nil {
			return err
		}
		affected, err := tx.DeletePartLine(ctx, job.ID, lineID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: part line %d on job %d", shared.ErrNotFound, lineID, jobID)
		}
		if _, err := tx.IncrementStock(ctx, line.PartID, line.Qty); err != nil {
			return err
		}
		return s.recompute(ctx, tx, job.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetDetail(ctx, jobID)
}

// Recompute re-derives the four totals from the current lines and tax rate.
func (s *Service) Recompute(ctx context.Context, jobID int64) (*JobCard, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetJobForUpdate(ctx, jobID); err != nil {
			return err
		}
		return s.recompute(ctx, tx, jobID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, jobID)
}

func (s *Service) recompute(ctx context.Context, tx TxRepository, jobID int64) error {
	services, err := tx.ListServiceLines(ctx, jobID)
	if err != nil {
		return err
	}
	parts, err := tx.ListPartLines(ctx, jobID)
	if err != nil {
		return err
	}
	rate, err := s.taxRate.GetTaxRatePercent(ctx)
	if err != nil {
		return err
	}
	return tx.UpdateTotals(ctx, jobID, ComputeTotals(services, parts, rate))
}

// mutableJob loads and locks the job, rejecting mutation once billed.
func (s *Service) mutableJob(ctx context.Context, tx TxRepository, jobID int64) (*JobCard, error) {
	job, err := tx.GetJobForUpdate(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == StatusBilled {
		return nil, fmt.Errorf("%w: job %d is billed", shared.ErrInvalidTransition, jobID)
	}
	return job, nil
}

// Delete moves a job to the trash, or removes it permanently when hard is
// set. Permanent deletion is only allowed while the job is still OPEN;
// committed part quantities go back to stock so the ledger stays balanced.
func (s *Service) Delete(ctx context.Context, jobID int64, hard bool) error {
	if !hard {
		if err := s.repo.SoftDelete(ctx, jobID, time.Now().UTC()); err != nil {
			return err
		}
		s.recordAudit(ctx, "job.trash", jobID, nil)
		return nil
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status != StatusOpen {
			return fmt.Errorf("%w: only open jobs can be permanently deleted", shared.ErrValidation)
		}
		parts, err := tx.ListPartLines(ctx, jobID)
		if err != nil {
			return err
		}
		for _, line := range parts {
			if _, err := tx.IncrementStock(ctx, line.PartID, line.Qty); err != nil {
				return err
			}
		}
		return tx.DeleteJob(ctx, jobID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "job.delete", jobID, nil)
	return nil
}

// Restore pulls a job back out of the trash.
func (s *Service) Restore(ctx context.Context, jobID int64) error {
	if err := s.repo.Restore(ctx, jobID); err != nil {
		return err
	}
	s.recordAudit(ctx, "job.restore", jobID, nil)
	return nil
}

// ReconcileTotals rescans every active job and recomputes totals whose
// stored values have drifted from the line items. It returns the ids that
// were corrected.
func (s *Service) ReconcileTotals(ctx context.Context) ([]int64, error) {
	ids, err := s.repo.ListActiveIDs(ctx)
	if err != nil {
		return nil, err
	}
	var drifted []int64
	for _, id := range ids {
		var fixed bool
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			job, err := tx.GetJobForUpdate(ctx, id)
			if err != nil {
				return err
			}
			services, err := tx.ListServiceLines(ctx, id)
			if err != nil {
				return err
			}
			parts, err := tx.ListPartLines(ctx, id)
			if err != nil {
				return err
			}
			rate, err := s.taxRate.GetTaxRatePercent(ctx)
			if err != nil {
				return err
			}
			want := ComputeTotals(services, parts, rate)
			if totalsEqual(job, want) {
				return nil
			}
			fixed = true
			return tx.UpdateTotals(ctx, id, want)
		})
		if err != nil {
			return drifted, err
		}
		if fixed {
			drifted = append(drifted, id)
		}
	}
	return drifted, nil
}

func totalsEqual(job *JobCard, want Totals) bool {
	const eps = 0.005
	return math.Abs(job.ServicesTotal-want.ServicesTotal) < eps &&
		math.Abs(job.PartsTotal-want.PartsTotal) < eps &&
		math.Abs(job.TaxAmount-want.TaxAmount) < eps &&
		math.Abs(job.GrandTotal-want.GrandTotal) < eps
}

func (s *Service) recordAudit(ctx context.Context, action string, jobID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	actor := shared.ActorFromContext(ctx)
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "job_card",
		EntityID: strconv.FormatInt(jobID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
