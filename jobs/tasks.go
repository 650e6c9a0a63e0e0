// Package jobs contains the background worker: the nightly trash retention
// sweep and the job-card totals integrity scan.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTrashPurge sweeps trashed records past their retention window.
	TaskTrashPurge = "trash:purge"
	// TaskTotalsReconcile rescans job-card totals against their line items.
	TaskTotalsReconcile = "jobcards:reconcile_totals"
)

// ScheduledPayload carries scheduling metadata shared by the cron tasks.
type ScheduledPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewTrashPurgeTask constructs the trash sweep task.
func NewTrashPurgeTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScheduledPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTrashPurge, body, asynq.Queue(QueueDefault)), nil
}

// NewTotalsReconcileTask constructs the totals integrity scan task.
func NewTotalsReconcileTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScheduledPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTotalsReconcile, body, asynq.Queue(QueueDefault)), nil
}
