package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

// Service exposes settings reads and writes. It doubles as the tax-rate
// provider injected into billing and line-item recomputation.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a single setting.
func (s *Service) Get(ctx context.Context, key string) (*Setting, error) {
	return s.repo.Get(ctx, key)
}

// List returns all settings.
func (s *Service) List(ctx context.Context) ([]Setting, error) {
	return s.repo.List(ctx)
}

// Set validates and stores a setting value.
func (s *Service) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: setting key required", shared.ErrValidation)
	}
	if key == KeyTaxRatePercent {
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil || rate < 0 || rate > 100 {
			return fmt.Errorf("%w: tax rate must be a percentage between 0 and 100", shared.ErrValidation)
		}
	}
	return s.repo.Set(ctx, key, value)
}

// GetTaxRatePercent reads the current tax rate, falling back to the default
// when unset or unparsable. Every totals recomputation reads this fresh.
func (s *Service) GetTaxRatePercent(ctx context.Context) (float64, error) {
	setting, err := s.repo.Get(ctx, KeyTaxRatePercent)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return DefaultTaxRatePercent, nil
		}
		return 0, err
	}
	rate, err := strconv.ParseFloat(setting.Value, 64)
	if err != nil {
		return DefaultTaxRatePercent, nil
	}
	return rate, nil
}
