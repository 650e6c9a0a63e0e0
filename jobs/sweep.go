package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/gearbox-ops/gearbox-ops/internal/jobmetrics"
	"github.com/gearbox-ops/gearbox-ops/internal/trash"
)

// SweepHandler runs the scheduled trash retention sweep.
type SweepHandler struct {
	logger  *slog.Logger
	trash   *trash.Service
	metrics *jobmetrics.Metrics
}

// NewSweepHandler builds the handler. metrics may be nil.
func NewSweepHandler(logger *slog.Logger, svc *trash.Service, metrics *jobmetrics.Metrics) *SweepHandler {
	return &SweepHandler{logger: logger, trash: svc, metrics: metrics}
}

// Handle processes TaskTrashPurge tasks.
func (h *SweepHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ScheduledPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := h.metrics.Track("trash_purge")
	purged, err := h.trash.PurgeAll(ctx)
	for entity, n := range purged {
		h.metrics.AddPurged(entity, int(n))
	}
	if err != nil {
		h.logger.Error("trash sweep failed", slog.Any("error", err))
	} else {
		h.logger.Info("trash sweep done", slog.Any("purged", purged))
	}
	return tracker.End(err)
}
