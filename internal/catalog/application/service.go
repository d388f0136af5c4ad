package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/restaurant-pos/internal/catalog/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/cache"
)

const categoriesKey = "categories"

type Service struct {
	log   *slog.Logger
	repo  Repository
	cache cache.Cache
	ttl   time.Duration
}

func NewService(log *slog.Logger, repo Repository, c cache.Cache, ttl time.Duration) *Service {
	return &Service{log: log, repo: repo, cache: c, ttl: ttl}
}

// ListCategories serves from the cache, falling back to the repository.
// Cache failures are logged and never surface.
func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var cached []domain.Category
	hit, err := s.cache.Get(ctx, categoriesKey, &cached)
	if err != nil {
		s.log.Warn("category cache read failed", "err", err)
	}
	if hit && err == nil {
		return cached, nil
	}

	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, categoriesKey, cats, s.ttl); err != nil {
		s.log.Warn("category cache write failed", "err", err)
	}
	return cats, nil
}

func (s *Service) CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	if err := c.Validate(); err != nil {
		return domain.Category{}, apperr.Invalid("category", "%s", err.Error())
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.ProductCount = 0
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return domain.Category{}, err
	}
	s.invalidate(ctx)
	return c, nil
}

// SaveProduct creates or replaces a product.
func (s *Service) SaveProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := p.Validate(); err != nil {
		return domain.Product{}, apperr.Invalid("product", "%s", err.Error())
	}
	if p.CategoryID != "" {
		if _, err := s.repo.GetCategory(ctx, p.CategoryID); err != nil {
			return domain.Product{}, err
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := s.repo.SaveProduct(ctx, p); err != nil {
		return domain.Product{}, err
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// Products resolves ids for pricing. Any unknown or inactive id is a
// NotFoundError.
func (s *Service) Products(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	found, err := s.repo.ProductsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		p, ok := found[id]
		if !ok || !p.Active {
			return nil, apperr.NotFound("product", id)
		}
	}
	return found, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, categoriesKey); err != nil {
		s.log.Error("category cache invalidation failed", "err", err)
	}
}
