package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gearbox-ops/gearbox-ops/internal/platform/db"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ID       string
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	store db.Store
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(store db.Store) *AuditLogger {
	return &AuditLogger{store: store}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	at := log.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	_, err = l.store.Exec(ctx, `INSERT INTO audit_logs (id, actor_id, action, entity, entity_id, meta, occurred_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}
