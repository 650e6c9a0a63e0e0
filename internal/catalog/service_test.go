package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

type memoryRepo struct {
	services map[int64]ServiceItem
	parts    map[int64]Part
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{services: make(map[int64]ServiceItem), parts: make(map[int64]Part)}
}

func (r *memoryRepo) GetServiceItem(ctx context.Context, id int64) (*ServiceItem, error) {
	s, ok := r.services[id]
	if !ok {
		return nil, fmt.Errorf("%w: catalog service %d", shared.ErrNotFound, id)
	}
	return &s, nil
}

func (r *memoryRepo) ListServiceItems(ctx context.Context, f ListFilters) ([]ServiceItem, int, error) {
	var out []ServiceItem
	for _, s := range r.services {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (r *memoryRepo) CreateServiceItem(ctx context.Context, item ServiceItem) (int64, error) {
	r.nextID++
	item.ID = r.nextID
	r.services[item.ID] = item
	return item.ID, nil
}

func (r *memoryRepo) UpdateServiceItem(ctx context.Context, id int64, name *string, price *float64) error {
	s, ok := r.services[id]
	if !ok {
		return fmt.Errorf("%w: catalog service %d", shared.ErrNotFound, id)
	}
	if name != nil {
		s.Name = *name
	}
	if price != nil {
		s.Price = *price
	}
	r.services[id] = s
	return nil
}

func (r *memoryRepo) GetPart(ctx context.Context, id int64) (*Part, error) {
	p, ok := r.parts[id]
	if !ok {
		return nil, fmt.Errorf("%w: part %d", shared.ErrNotFound, id)
	}
	return &p, nil
}

func (r *memoryRepo) GetPartByNumber(ctx context.Context, number string) (*Part, error) {
	for _, p := range r.parts {
		if p.PartNumber == number {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: part %s", shared.ErrNotFound, number)
}

func (r *memoryRepo) ListParts(ctx context.Context, f ListFilters) ([]Part, int, error) {
	var out []Part
	for _, p := range r.parts {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) CreatePart(ctx context.Context, part Part) (int64, error) {
	for _, p := range r.parts {
		if p.PartNumber == part.PartNumber {
			return 0, fmt.Errorf("%w: part number %s already exists", shared.ErrConflict, part.PartNumber)
		}
	}
	r.nextID++
	part.ID = r.nextID
	r.parts[part.ID] = part
	return part.ID, nil
}

func (r *memoryRepo) UpdatePart(ctx context.Context, id int64, name *string, unitPrice *float64) error {
	p, ok := r.parts[id]
	if !ok {
		return fmt.Errorf("%w: part %d", shared.ErrNotFound, id)
	}
	if name != nil {
		p.Name = *name
	}
	if unitPrice != nil {
		p.UnitPrice = *unitPrice
	}
	r.parts[id] = p
	return nil
}

func (r *memoryRepo) Restock(ctx context.Context, partID int64, qty int) (int, error) {
	p, ok := r.parts[partID]
	if !ok {
		return 0, fmt.Errorf("%w: part %d", shared.ErrNotFound, partID)
	}
	p.StockQty += qty
	r.parts[partID] = p
	return p.StockQty, nil
}

func TestCreatePartRejectsDuplicateNumber(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.CreatePart(ctx, CreatePartRequest{Name: "Oil Filter", PartNumber: "OF-100", UnitPrice: 250, StockQty: 10})
	require.NoError(t, err)

	_, err = svc.CreatePart(ctx, CreatePartRequest{Name: "Other Filter", PartNumber: "OF-100", UnitPrice: 300})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestRestockRaisesStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreatePart(ctx, CreatePartRequest{Name: "Brake Pad", PartNumber: "BP-20", UnitPrice: 900, StockQty: 2})
	require.NoError(t, err)

	part, err := svc.Restock(ctx, created.ID, 5)
	require.NoError(t, err)
	require.Equal(t, 7, part.StockQty)
}

func TestUpdatePartNeverTouchesStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreatePart(ctx, CreatePartRequest{Name: "Spark Plug", PartNumber: "SP-1", UnitPrice: 120, StockQty: 4})
	require.NoError(t, err)

	price := 150.0
	updated, err := svc.UpdatePart(ctx, created.ID, UpdatePartRequest{UnitPrice: &price})
	require.NoError(t, err)
	require.InDelta(t, 150.0, updated.UnitPrice, 0.0001)
	require.Equal(t, 4, updated.StockQty)
}
