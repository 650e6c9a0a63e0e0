package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/gearbox-ops/gearbox-ops/internal/jobcards"
	"github.com/gearbox-ops/gearbox-ops/internal/jobmetrics"
)

// ReconcileHandler runs the totals integrity scan over active job cards.
type ReconcileHandler struct {
	logger  *slog.Logger
	jobs    *jobcards.Service
	metrics *jobmetrics.Metrics
}

// NewReconcileHandler builds the handler. metrics may be nil.
func NewReconcileHandler(logger *slog.Logger, svc *jobcards.Service, metrics *jobmetrics.Metrics) *ReconcileHandler {
	return &ReconcileHandler{logger: logger, jobs: svc, metrics: metrics}
}

// Handle processes TaskTotalsReconcile tasks.
func (h *ReconcileHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ScheduledPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := h.metrics.Track("totals_reconcile")
	drifted, err := h.jobs.ReconcileTotals(ctx)
	h.metrics.AddTotalsDrift(len(drifted))
	if err != nil {
		h.logger.Error("totals reconcile failed", slog.Any("error", err))
	} else if len(drifted) > 0 {
		h.logger.Warn("totals drift corrected", slog.Any("job_ids", drifted))
	}
	return tracker.End(err)
}
