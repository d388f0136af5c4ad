package application

import (
	"context"

	"github.com/dmehra2102/restaurant-pos/internal/catalog/domain"
)

type Repository interface {
	CreateCategory(ctx context.Context, c domain.Category) error
	GetCategory(ctx context.Context, id string) (domain.Category, error)
	// ListCategories returns categories by position with product counts.
	ListCategories(ctx context.Context) ([]domain.Category, error)
	SaveProduct(ctx context.Context, p domain.Product) error
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	// ProductsByID returns the products found among ids; unknown ids are absent.
	ProductsByID(ctx context.Context, ids []string) (map[string]domain.Product, error)
}
