package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/restaurant-pos/internal/inventory/application"
	"github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

var milk = domain.IngredientKey("milk")

func TestDeductLatteOrder(t *testing.T) {
	f := newFixture(t)
	f.stock(t, milk, "500", "0", "1000")
	f.recipe(t, "latte", "milk", "200")

	res, err := f.svc.Engine.Deduct(f.ctx, "order-1", []domain.SaleLine{{ProductID: "latte", Quantity: 2}}, cashier)
	require.NoError(t, err)

	assert.False(t, res.Replayed)
	require.Len(t, res.Lines, 1)
	assert.True(t, dec("400").Equal(res.Lines[0].Quantity))
	assert.True(t, dec("100").Equal(f.level(t, milk)))

	sales := f.sales(t, milk)
	require.Len(t, sales, 1)
	assert.True(t, dec("-400").Equal(sales[0].Quantity))
	assert.Equal(t, "order-1", sales[0].Reference)
	assert.Equal(t, cashier.String(), sales[0].Actor)
}

func TestDeductInsufficientStockLeavesEverythingUntouched(t *testing.T) {
	f := newFixture(t)
	f.stock(t, milk, "300", "0", "1000")
	f.stock(t, domain.IngredientKey("espresso"), "100", "0", "1000")
	f.recipe(t, "latte", "espresso", "1")
	f.recipe(t, "latte", "milk", "200")

	_, err := f.svc.Engine.Deduct(f.ctx, "order-1", []domain.SaleLine{{ProductID: "latte", Quantity: 2}}, cashier)
	require.Error(t, err)

	var insufficient *apperr.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "milk", insufficient.EntityID)
	assert.True(t, dec("300").Equal(insufficient.Available))
	assert.True(t, dec("400").Equal(insufficient.Requested))

	assert.True(t, dec("300").Equal(f.level(t, milk)))
	assert.True(t, dec("100").Equal(f.level(t, domain.IngredientKey("espresso"))))
	assert.Empty(t, f.sales(t, domain.IngredientKey("espresso")))

	// The failed attempt must not leave an idempotency record behind.
	_, err = f.svc.Engine.Reverse(f.ctx, "order-1", cashier)
	assert.ErrorIs(t, err, application.ErrNotDeducted)
}

func TestDeductAggregatesSharedIngredientsAndTracksProducts(t *testing.T) {
	f := newFixture(t)
	f.stock(t, milk, "1000", "0", "1000")
	f.stock(t, domain.ProductKey("croissant"), "10", "0", "50")
	f.recipe(t, "latte", "milk", "200")
	f.recipe(t, "cappuccino", "milk", "150")

	res, err := f.svc.Engine.Deduct(f.ctx, "order-1", []domain.SaleLine{
		{ProductID: "latte", Quantity: 1},
		{ProductID: "croissant", Quantity: 3},
		{ProductID: "cappuccino", Quantity: 2},
	}, cashier)
	require.NoError(t, err)

	require.Len(t, res.Lines, 2)
	assert.Equal(t, milk, res.Lines[0].Key())
	assert.True(t, dec("500").Equal(res.Lines[0].Quantity))
	assert.Equal(t, domain.ProductKey("croissant"), res.Lines[1].Key())

	assert.True(t, dec("500").Equal(f.level(t, milk)))
	assert.True(t, dec("7").Equal(f.level(t, domain.ProductKey("croissant"))))
	assert.Len(t, f.sales(t, milk), 1)
}

func TestDeductMissingIngredientRowIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.stock(t, milk, "1000", "0", "1000")
	f.recipe(t, "latte", "milk", "200")
	require.NoError(t, f.db.WithinTx(f.ctx, func(ctx context.Context) error {
		return f.repos.Recipes.Put(ctx, domain.Recipe{ProductID: "latte", IngredientID: "vanilla", QuantityPerUnit: dec("5"), Position: 1})
	}))

	_, err := f.svc.Engine.Deduct(f.ctx, "order-1", []domain.SaleLine{{ProductID: "latte", Quantity: 1}}, cashier)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, dec("1000").Equal(f.level(t, milk)))
}

func TestDeductIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.stock(t, milk, "500", "0", "1000")
	f.recipe(t, "latte", "milk", "200")
	lines := []domain.SaleLine{{ProductID: "latte", Quantity: 2}}

	first, err := f.svc.Engine.Deduct(f.ctx, "order-1", lines, cashier)
	require.NoError(t, err)
	second, err := f.svc.Engine.Deduct(f.ctx, "order-1", lines, cashier)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Lines, second.Lines)
	assert.True(t, dec("100").Equal(f.level(t, milk)))
	assert.Len(t, f.sales(t, milk), 1)
}

func TestDeductConcurrentSameOrderAppliesOnce(t *testing.T) {
	f := newFixture(t)
	f.stock(t, milk, "5000", "0", "5000")
	f.recipe(t, "latte", "milk", "200")
	lines := []domain.SaleLine{{ProductID: "latte", Quantity: 2}}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Engine.Deduct(f.ctx, "order-1", lines, cashier)
			if assert.NoError(t, err) && !res.Replayed {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	assert.True(t, dec("4600").Equal(f.level(t, milk)))
	assert.Len(t, f.sales(t, milk), 1)
}

func TestConcurrentOrdersNeverDriveStockNegative(t *testing.T) {
	f := newFixture(t)
	f.stock(t, milk, "1000", "0", "1000")
	f.recipe(t, "latte", "milk", "300")

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ok, rejected int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Engine.Deduct(f.ctx, fmt.Sprintf("order-%d", i), []domain.SaleLine{{ProductID: "latte", Quantity: 1}}, cashier)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperr.Is(err, apperr.KindInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, 7, rejected)
	assert.True(t, dec("100").Equal(f.level(t, milk)))
}

func TestReverseRestoresLevelsOnce(t *testing.T) {
	f := newFixture(t)
	f.stock(t, milk, "500", "50", "1000")
	f.stock(t, domain.ProductKey("cookie"), "20", "0", "40")
	f.recipe(t, "latte", "milk", "200")
	lines := []domain.SaleLine{{ProductID: "latte", Quantity: 2}, {ProductID: "cookie", Quantity: 4}}

	_, err := f.svc.Engine.Deduct(f.ctx, "order-1", lines, cashier)
	require.NoError(t, err)

	res, err := f.svc.Engine.Reverse(f.ctx, "order-1", cashier)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.True(t, dec("500").Equal(f.level(t, milk)))
	assert.True(t, dec("20").Equal(f.level(t, domain.ProductKey("cookie"))))

	again, err := f.svc.Engine.Reverse(f.ctx, "order-1", cashier)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.True(t, dec("500").Equal(f.level(t, milk)))

	txs, err := f.svc.Transactions(f.ctx, milk, 10)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, domain.TxReturn, txs[0].Type)
	assert.True(t, dec("400").Equal(txs[0].Quantity))
}

func TestReverseWithoutDeduction(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Engine.Reverse(f.ctx, "never-deducted", cashier)
	assert.ErrorIs(t, err, application.ErrNotDeducted)
}

func TestDeductRejectsNonPositiveQuantity(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Engine.Deduct(f.ctx, "order-1", []domain.SaleLine{{ProductID: "latte", Quantity: 0}}, cashier)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
