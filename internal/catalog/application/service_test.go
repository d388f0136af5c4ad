package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/restaurant-pos/internal/catalog/application"
	"github.com/dmehra2102/restaurant-pos/internal/catalog/domain"
	"github.com/dmehra2102/restaurant-pos/internal/catalog/infrastructure/memory"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/cache"
	"github.com/dmehra2102/restaurant-pos/pkg/logging"
	"github.com/dmehra2102/restaurant-pos/pkg/memtx"
)

// countingRepo records how often the listing reaches the repository.
type countingRepo struct {
	application.Repository
	lists int
}

func (r *countingRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	r.lists++
	return r.Repository.ListCategories(ctx)
}

func newService(t *testing.T) (*application.Service, *countingRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := &countingRepo{Repository: memory.New(memtx.New())}
	return application.NewService(logging.Discard(), repo, cache.NewRedis(rdb, "pos:"), time.Minute), repo
}

func TestListCategoriesIsCachedUntilMutation(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	drinks, err := svc.CreateCategory(ctx, domain.Category{Name: "Drinks", Position: 1})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, domain.Category{Name: "Bakery", Position: 2})
	require.NoError(t, err)

	first, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	second, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.lists)

	_, err = svc.SaveProduct(ctx, domain.Product{Name: "Latte", CategoryID: drinks.ID, Price: 4500, Active: true})
	require.NoError(t, err)

	after, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.lists)
	require.Len(t, after, 2)
	assert.Equal(t, "Drinks", after[0].Name)
	assert.Equal(t, 1, after[0].ProductCount)
}

func TestSaveProductValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		product domain.Product
		kind    apperr.Kind
	}{
		{"missing name", domain.Product{Price: 100}, apperr.KindValidation},
		{"negative price", domain.Product{Name: "Tea", Price: -1}, apperr.KindValidation},
		{"unknown category", domain.Product{Name: "Tea", Price: 100, CategoryID: "nope"}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveProduct(ctx, tt.product)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestProductsRejectsUnknownAndInactive(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	latte, err := svc.SaveProduct(ctx, domain.Product{ID: "latte", Name: "Latte", Price: 4500, Active: true})
	require.NoError(t, err)
	_, err = svc.SaveProduct(ctx, domain.Product{ID: "retired", Name: "Old Brew", Price: 1000})
	require.NoError(t, err)

	found, err := svc.Products(ctx, []string{"latte"})
	require.NoError(t, err)
	assert.Equal(t, latte, found["latte"])

	_, err = svc.Products(ctx, []string{"latte", "retired"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = svc.Products(ctx, []string{"ghost"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
