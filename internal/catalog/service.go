package catalog

import (
	"context"
	"fmt"

	"github.com/gearbox-ops/gearbox-ops/internal/platform/cache"
)

const (
	cacheKeyParts    = "catalog:parts"
	cacheKeyServices = "catalog:services"
)

// Service coordinates catalog reads and writes. Unfiltered first-page
// listings are served from the Redis cache; any mutation invalidates it.
type Service struct {
	repo  Repository
	cache *cache.Cache
}

// NewService builds Service. The cache may be nil.
func NewService(repo Repository, c *cache.Cache) *Service {
	return &Service{repo: repo, cache: c}
}

// GetServiceItem returns one catalog service.
func (s *Service) GetServiceItem(ctx context.Context, id int64) (*ServiceItem, error) {
	return s.repo.GetServiceItem(ctx, id)
}

// ListServiceItems returns catalog services matching the filters.
func (s *Service) ListServiceItems(ctx context.Context, f ListFilters) ([]ServiceItem, int, error) {
	if !cacheableFilters(f) {
		return s.repo.ListServiceItems(ctx, f)
	}
	var cached struct {
		Items []ServiceItem `json:"items"`
		Total int           `json:"total"`
	}
	err := s.cache.FetchJSON(ctx, cacheKeyServices, &cached, func(ctx context.Context) (any, error) {
		items, total, err := s.repo.ListServiceItems(ctx, f)
		if err != nil {
			return nil, err
		}
		return map[string]any{"items": items, "total": total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return cached.Items, cached.Total, nil
}

// CreateServiceItem inserts a catalog service.
func (s *Service) CreateServiceItem(ctx context.Context, req CreateServiceItemRequest) (*ServiceItem, error) {
	id, err := s.repo.CreateServiceItem(ctx, ServiceItem{Name: req.Name, Price: req.Price})
	if err != nil {
		return nil, fmt.Errorf("catalog: create service: %w", err)
	}
	_ = s.cache.Invalidate(ctx, cacheKeyServices)
	return s.repo.GetServiceItem(ctx, id)
}

// UpdateServiceItem applies a partial update.
func (s *Service) UpdateServiceItem(ctx context.Context, id int64, req UpdateServiceItemRequest) (*ServiceItem, error) {
	if err := s.repo.UpdateServiceItem(ctx, id, req.Name, req.Price); err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, cacheKeyServices)
	return s.repo.GetServiceItem(ctx, id)
}

// GetPart returns one part.
func (s *Service) GetPart(ctx context.Context, id int64) (*Part, error) {
	return s.repo.GetPart(ctx, id)
}

// ListParts returns parts matching the filters.
func (s *Service) ListParts(ctx context.Context, f ListFilters) ([]Part, int, error) {
	if !cacheableFilters(f) {
		return s.repo.ListParts(ctx, f)
	}
	var cached struct {
		Items []Part `json:"items"`
		Total int    `json:"total"`
	}
	err := s.cache.FetchJSON(ctx, cacheKeyParts, &cached, func(ctx context.Context) (any, error) {
		items, total, err := s.repo.ListParts(ctx, f)
		if err != nil {
			return nil, err
		}
		return map[string]any{"items": items, "total": total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return cached.Items, cached.Total, nil
}

// CreatePart inserts a part with its opening stock.
func (s *Service) CreatePart(ctx context.Context, req CreatePartRequest) (*Part, error) {
	id, err := s.repo.CreatePart(ctx, Part{
		Name:       req.Name,
		PartNumber: req.PartNumber,
		UnitPrice:  req.UnitPrice,
		StockQty:   req.StockQty,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: create part: %w", err)
	}
	_ = s.cache.Invalidate(ctx, cacheKeyParts)
	return s.repo.GetPart(ctx, id)
}

// UpdatePart applies a partial update. Stock is never patched here; it moves
// only through the ledger.
func (s *Service) UpdatePart(ctx context.Context, id int64, req UpdatePartRequest) (*Part, error) {
	if err := s.repo.UpdatePart(ctx, id, req.Name, req.UnitPrice); err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, cacheKeyParts)
	return s.repo.GetPart(ctx, id)
}

// Restock adds inbound stock for a part through the ledger.
func (s *Service) Restock(ctx context.Context, id int64, qty int) (*Part, error) {
	if _, err := s.repo.Restock(ctx, id, qty); err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, cacheKeyParts)
	return s.repo.GetPart(ctx, id)
}

func cacheableFilters(f ListFilters) bool {
	return f.Search == "" && f.Page <= 1 && f.PerPage == 0
}
