package trash

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

type memoryBin struct {
	entity string
	items  map[int64]*Item
	active map[int64]bool
}

func newMemoryBin(entity string) *memoryBin {
	return &memoryBin{entity: entity, items: map[int64]*Item{}, active: map[int64]bool{}}
}

func (b *memoryBin) seed(id int64) {
	b.active[id] = true
}

func (b *memoryBin) SoftDelete(_ context.Context, id int64, at time.Time) error {
	if !b.active[id] {
		return fmt.Errorf("%w: %s %d", shared.ErrNotFound, b.entity, id)
	}
	delete(b.active, id)
	b.items[id] = &Item{Entity: b.entity, ID: id, DeletedAt: at}
	return nil
}

func (b *memoryBin) Restore(_ context.Context, id int64) error {
	if _, ok := b.items[id]; !ok {
		return fmt.Errorf("%w: trashed %s %d", shared.ErrNotFound, b.entity, id)
	}
	delete(b.items, id)
	b.active[id] = true
	return nil
}

func (b *memoryBin) ListTrashed(context.Context) ([]Item, error) {
	var out []Item
	for _, item := range b.items {
		out = append(out, *item)
	}
	return out, nil
}

func (b *memoryBin) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	for id, item := range b.items {
		if item.DeletedAt.Before(cutoff) {
			delete(b.items, id)
			purged++
		}
	}
	return purged, nil
}

func newTestService(retention time.Duration, now time.Time) (*Service, *memoryBin) {
	svc := NewService(slog.Default(), retention)
	svc.now = func() time.Time { return now }
	bin := newMemoryBin(EntityJobs)
	svc.Register(EntityJobs, bin)
	return svc, bin
}

func TestPurgeEligible(t *testing.T) {
	now := time.Now().UTC()
	retention := 30 * 24 * time.Hour
	require.False(t, PurgeEligible(now.Add(-29*24*time.Hour), now, retention))
	require.True(t, PurgeEligible(now.Add(-30*24*time.Hour), now, retention))
	require.True(t, PurgeEligible(now.Add(-45*24*time.Hour), now, retention))
}

func TestListPurgesExpiredItemsFirst(t *testing.T) {
	now := time.Now().UTC()
	svc, bin := newTestService(30*24*time.Hour, now)
	ctx := context.Background()

	old := now.Add(-31 * 24 * time.Hour)
	recent := now.Add(-2 * 24 * time.Hour)
	bin.items[1] = &Item{Entity: EntityJobs, ID: 1, DeletedAt: old}
	bin.items[2] = &Item{Entity: EntityJobs, ID: 2, DeletedAt: recent}

	items, err := svc.List(ctx, EntityJobs)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, int64(2), items[0].ID)
	require.Equal(t, recent.Add(30*24*time.Hour), items[0].PurgeAt)
}

func TestSoftDeleteRestoreRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	svc, bin := newTestService(30*24*time.Hour, now)
	ctx := context.Background()
	bin.seed(7)

	require.NoError(t, svc.SoftDelete(ctx, EntityJobs, 7))
	require.False(t, bin.active[7])

	require.NoError(t, svc.Restore(ctx, EntityJobs, 7))
	require.True(t, bin.active[7])

	err := svc.Restore(ctx, EntityJobs, 7)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUnknownEntityRejected(t *testing.T) {
	svc, _ := newTestService(30*24*time.Hour, time.Now().UTC())
	err := svc.SoftDelete(context.Background(), "parts", 1)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestPurgeAllSweepsEveryBin(t *testing.T) {
	now := time.Now().UTC()
	svc, jobs := newTestService(30*24*time.Hour, now)
	custs := newMemoryBin(EntityCustomers)
	svc.Register(EntityCustomers, custs)
	ctx := context.Background()

	jobs.items[1] = &Item{Entity: EntityJobs, ID: 1, DeletedAt: now.Add(-40 * 24 * time.Hour)}
	custs.items[2] = &Item{Entity: EntityCustomers, ID: 2, DeletedAt: now.Add(-40 * 24 * time.Hour)}
	custs.items[3] = &Item{Entity: EntityCustomers, ID: 3, DeletedAt: now.Add(-1 * time.Hour)}

	purged, err := svc.PurgeAll(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged[EntityJobs])
	require.Equal(t, int64(1), purged[EntityCustomers])
	require.Len(t, custs.items, 1)
}
