package fleet

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

type memoryRepo struct {
	nextID   int64
	vehicles map[int64]Vehicle
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, vehicles: map[int64]Vehicle{}}
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Vehicle, error) {
	v, ok := m.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("%w: vehicle %d", shared.ErrNotFound, id)
	}
	return &v, nil
}

func (m *memoryRepo) GetByRegistration(_ context.Context, registration string) (*Vehicle, error) {
	for _, v := range m.vehicles {
		if v.Registration == registration {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("%w: vehicle %s", shared.ErrNotFound, registration)
}

func (m *memoryRepo) List(_ context.Context, req ListVehiclesRequest) ([]Vehicle, int, error) {
	var out []Vehicle
	for _, v := range m.vehicles {
		if req.CustomerID != nil && v.CustomerID != *req.CustomerID {
			continue
		}
		out = append(out, v)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(_ context.Context, v Vehicle) (int64, error) {
	for _, existing := range m.vehicles {
		if existing.Registration == v.Registration {
			return 0, fmt.Errorf("%w: registration %s already exists", shared.ErrConflict, v.Registration)
		}
	}
	v.ID = m.nextID
	v.CreatedAt = time.Now().UTC()
	v.UpdatedAt = v.CreatedAt
	m.vehicles[v.ID] = v
	m.nextID++
	return v.ID, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, req UpdateVehicleRequest) error {
	v, ok := m.vehicles[id]
	if !ok {
		return fmt.Errorf("%w: vehicle %d", shared.ErrNotFound, id)
	}
	if req.Model != nil {
		v.Model = *req.Model
	}
	if req.CustomerID != nil {
		v.CustomerID = *req.CustomerID
	}
	m.vehicles[id] = v
	return nil
}

func TestCreateVehicleRejectsDuplicateRegistration(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateVehicleRequest{Registration: "KA-01-HH-1234", Model: "Swift", CustomerID: 1, LastKM: 42000})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateVehicleRequest{Registration: "KA-01-HH-1234", Model: "Baleno", CustomerID: 2})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestUpdateVehicleNeverTouchesOdometer(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateVehicleRequest{Registration: "MH-12-AB-7", Model: "i20", CustomerID: 5, LastKM: 10000})
	require.NoError(t, err)

	model := "i20 N Line"
	updated, err := svc.Update(ctx, created.ID, UpdateVehicleRequest{Model: &model})
	require.NoError(t, err)
	require.Equal(t, "i20 N Line", updated.Model)
	require.Equal(t, int64(10000), updated.LastKM)
}

func TestListVehiclesFiltersByCustomer(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateVehicleRequest{Registration: "A-1", Model: "Polo", CustomerID: 1})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateVehicleRequest{Registration: "B-2", Model: "Vento", CustomerID: 2})
	require.NoError(t, err)

	customerID := int64(2)
	items, total, err := svc.List(ctx, ListVehiclesRequest{CustomerID: &customerID})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "B-2", items[0].Registration)
}
