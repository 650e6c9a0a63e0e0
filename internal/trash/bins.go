package trash

import (
	"context"
	"fmt"
	"time"

	"github.com/gearbox-ops/gearbox-ops/internal/customers"
	"github.com/gearbox-ops/gearbox-ops/internal/jobcards"
)

type customerBin struct {
	repo customers.Repository
}

// NewCustomerBin adapts the customer repository to the trash bin.
func NewCustomerBin(repo customers.Repository) Bin {
	return &customerBin{repo: repo}
}

func (b *customerBin) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	return b.repo.SoftDelete(ctx, id, at)
}

func (b *customerBin) Restore(ctx context.Context, id int64) error {
	return b.repo.Restore(ctx, id)
}

func (b *customerBin) ListTrashed(ctx context.Context) ([]Item, error) {
	trashed, err := b.repo.ListTrashed(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(trashed))
	for _, c := range trashed {
		items = append(items, Item{
			Entity:    EntityCustomers,
			ID:        c.ID,
			Label:     c.Name,
			DeletedAt: *c.DeletedAt,
		})
	}
	return items, nil
}

func (b *customerBin) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return b.repo.PurgeOlderThan(ctx, cutoff)
}

type jobBin struct {
	repo jobcards.Repository
}

// NewJobBin adapts the job-card repository to the trash bin.
func NewJobBin(repo jobcards.Repository) Bin {
	return &jobBin{repo: repo}
}

func (b *jobBin) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	return b.repo.SoftDelete(ctx, id, at)
}

func (b *jobBin) Restore(ctx context.Context, id int64) error {
	return b.repo.Restore(ctx, id)
}

func (b *jobBin) ListTrashed(ctx context.Context) ([]Item, error) {
	trashed, err := b.repo.ListTrashed(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(trashed))
	for _, j := range trashed {
		items = append(items, Item{
			Entity:    EntityJobs,
			ID:        j.ID,
			Label:     fmt.Sprintf("job #%d: %s", j.ID, j.Complaint),
			DeletedAt: *j.DeletedAt,
		})
	}
	return items, nil
}

func (b *jobBin) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return b.repo.PurgeOlderThan(ctx, cutoff)
}
