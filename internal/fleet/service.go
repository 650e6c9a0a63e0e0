package fleet

import (
	"context"
	"fmt"
)

// Service coordinates vehicle operations.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns one vehicle.
func (s *Service) Get(ctx context.Context, id int64) (*Vehicle, error) {
	return s.repo.Get(ctx, id)
}

// GetByRegistration looks a vehicle up by its plate.
func (s *Service) GetByRegistration(ctx context.Context, registration string) (*Vehicle, error) {
	return s.repo.GetByRegistration(ctx, registration)
}

// List returns vehicles matching the filters.
func (s *Service) List(ctx context.Context, req ListVehiclesRequest) ([]Vehicle, int, error) {
	return s.repo.List(ctx, req)
}

// Create registers a vehicle. The registration plate must be unique.
func (s *Service) Create(ctx context.Context, req CreateVehicleRequest) (*Vehicle, error) {
	id, err := s.repo.Create(ctx, Vehicle{
		Registration: req.Registration,
		Model:        req.Model,
		CustomerID:   req.CustomerID,
		LastKM:       req.LastKM,
	})
	if err != nil {
		return nil, fmt.Errorf("fleet: create: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Update applies a partial update. The odometer is deliberately not
// updatable here; job intake advances it under the job transaction.
func (s *Service) Update(ctx context.Context, id int64, req UpdateVehicleRequest) (*Vehicle, error) {
	if err := s.repo.Update(ctx, id, req); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}
