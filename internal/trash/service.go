// Package trash implements the shared soft-delete bin: trashed customers
// and job cards sit behind a retention window and are purged once it
// lapses.
package trash

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

// Entity names accepted by the bin registry.
const (
	EntityJobs      = "jobs"
	EntityCustomers = "customers"
)

// Item is one trashed record, entity-agnostic for presentation.
type Item struct {
	Entity    string    `json:"entity"`
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	DeletedAt time.Time `json:"deleted_at"`
	PurgeAt   time.Time `json:"purge_at"`
}

// Bin is what an entity package exposes to participate in the trash.
type Bin interface {
	SoftDelete(ctx context.Context, id int64, at time.Time) error
	Restore(ctx context.Context, id int64) error
	ListTrashed(ctx context.Context) ([]Item, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PurgeEligible reports whether a record deleted at deletedAt has outlived
// the retention window as of now.
func PurgeEligible(deletedAt, now time.Time, retention time.Duration) bool {
	return now.Sub(deletedAt) >= retention
}

// Service orchestrates the per-entity bins.
type Service struct {
	logger    *slog.Logger
	retention time.Duration
	bins      map[string]Bin
	now       func() time.Time
}

// NewService builds Service with the given retention window.
func NewService(logger *slog.Logger, retention time.Duration) *Service {
	return &Service{
		logger:    logger,
		retention: retention,
		bins:      map[string]Bin{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register attaches an entity's bin under its name.
func (s *Service) Register(entity string, bin Bin) {
	s.bins[entity] = bin
}

func (s *Service) bin(entity string) (Bin, error) {
	bin, ok := s.bins[entity]
	if !ok {
		return nil, fmt.Errorf("%w: unknown trash entity %q", shared.ErrValidation, entity)
	}
	return bin, nil
}

// SoftDelete moves a record into the trash.
func (s *Service) SoftDelete(ctx context.Context, entity string, id int64) error {
	bin, err := s.bin(entity)
	if err != nil {
		return err
	}
	return bin.SoftDelete(ctx, id, s.now())
}

// Restore pulls a record back out of the trash.
func (s *Service) Restore(ctx context.Context, entity string, id int64) error {
	bin, err := s.bin(entity)
	if err != nil {
		return err
	}
	return bin.Restore(ctx, id)
}

// List purges expired records opportunistically, then returns what remains
// in the entity's bin, oldest deletion first.
func (s *Service) List(ctx context.Context, entity string) ([]Item, error) {
	bin, err := s.bin(entity)
	if err != nil {
		return nil, err
	}
	if _, err := s.purgeBin(ctx, entity, bin); err != nil {
		return nil, err
	}
	items, err := bin.ListTrashed(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].PurgeAt = items[i].DeletedAt.Add(s.retention)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].DeletedAt.Before(items[j].DeletedAt) })
	return items, nil
}

// PurgeAll sweeps every registered bin and returns the purged count per
// entity. The nightly job calls this; List calls the per-bin variant.
func (s *Service) PurgeAll(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(s.bins))
	for entity, bin := range s.bins {
		n, err := s.purgeBin(ctx, entity, bin)
		if err != nil {
			return out, err
		}
		out[entity] = n
	}
	return out, nil
}

func (s *Service) purgeBin(ctx context.Context, entity string, bin Bin) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	n, err := bin.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("trash: purge %s: %w", entity, err)
	}
	if n > 0 {
		s.logger.Info("purged trashed records",
			slog.String("entity", entity), slog.Int64("count", n))
	}
	return n, nil
}
