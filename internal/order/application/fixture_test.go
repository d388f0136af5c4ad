package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/restaurant-pos/internal/broadcast"
	catalogapp "github.com/dmehra2102/restaurant-pos/internal/catalog/application"
	catalogdom "github.com/dmehra2102/restaurant-pos/internal/catalog/domain"
	catalogmem "github.com/dmehra2102/restaurant-pos/internal/catalog/infrastructure/memory"
	invapp "github.com/dmehra2102/restaurant-pos/internal/inventory/application"
	invdom "github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
	invmem "github.com/dmehra2102/restaurant-pos/internal/inventory/infrastructure/memory"
	loyaltyapp "github.com/dmehra2102/restaurant-pos/internal/loyalty/application"
	loyaltydom "github.com/dmehra2102/restaurant-pos/internal/loyalty/domain"
	loyaltymem "github.com/dmehra2102/restaurant-pos/internal/loyalty/infrastructure/memory"
	"github.com/dmehra2102/restaurant-pos/internal/order/application"
	"github.com/dmehra2102/restaurant-pos/internal/order/domain"
	ordermem "github.com/dmehra2102/restaurant-pos/internal/order/infrastructure/memory"
	promoapp "github.com/dmehra2102/restaurant-pos/internal/promotion/application"
	promodom "github.com/dmehra2102/restaurant-pos/internal/promotion/domain"
	promomem "github.com/dmehra2102/restaurant-pos/internal/promotion/infrastructure/memory"
	"github.com/dmehra2102/restaurant-pos/pkg/actor"
	"github.com/dmehra2102/restaurant-pos/pkg/cache"
	"github.com/dmehra2102/restaurant-pos/pkg/config"
	"github.com/dmehra2102/restaurant-pos/pkg/logging"
	"github.com/dmehra2102/restaurant-pos/pkg/memtx"
	"github.com/dmehra2102/restaurant-pos/pkg/outbox"
)

var barista = actor.Actor{ID: "barista-1", Kind: actor.KindStaff}

type fixture struct {
	ctx       context.Context
	db        *memtx.DB
	orders    *application.Service
	inventory *invapp.Service
	catalog   *catalogapp.Service
	promos    *promoapp.Validator
	loyalty   *loyaltyapp.Accountant
	outbox    *outbox.MemoryStore
	pub       *broadcast.Recorder
}

func newFixture(t *testing.T, deductAt string) *fixture {
	t.Helper()
	log := logging.Discard()
	db := memtx.New()
	pub := &broadcast.Recorder{}

	inv := invmem.New(db)
	inventory := invapp.NewService(log, db, inv.Stock, inv.Recipes, inv.Alerts, inv.Deductions, pub)
	catalog := catalogapp.NewService(log, catalogmem.New(db), cache.NewMemory(), time.Minute)
	promos := promoapp.NewValidator(log, db, promomem.New(db), time.UTC)
	loyalty := loyaltyapp.NewAccountant(log, db, loyaltymem.New(db), loyaltyapp.RulesFromConfig(config.DefaultRules().Loyalty))
	box := outbox.NewMemoryStore(db)

	deps := application.Deps{
		Tx:        db,
		Orders:    ordermem.New(db),
		Stock:     inventory.Engine,
		Promos:    promos,
		Loyalty:   loyalty,
		Catalog:   catalog,
		Outbox:    box,
		Publisher: pub,
	}
	machine := application.NewStateMachine(log, deps, deductAt)
	return &fixture{
		ctx:       actor.WithActor(context.Background(), barista),
		db:        db,
		orders:    application.NewService(log, deps, machine, time.UTC),
		inventory: inventory,
		catalog:   catalog,
		promos:    promos,
		loyalty:   loyalty,
		outbox:    box,
		pub:       pub,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// menu seeds a latte (tracked product stock, recipe of milk and beans) and
// a croissant with no stock row.
func (f *fixture) menu(t *testing.T) {
	t.Helper()
	cat, err := f.catalog.CreateCategory(f.ctx, catalogdom.Category{Name: "Drinks"})
	require.NoError(t, err)
	for _, p := range []catalogdom.Product{
		{ID: "latte", Name: "Latte", CategoryID: cat.ID, Price: 35_000, Active: true},
		{ID: "croissant", Name: "Croissant", Price: 20_000, Active: true},
	} {
		_, err := f.catalog.SaveProduct(f.ctx, p)
		require.NoError(t, err)
	}

	f.stock(t, invdom.ProductKey("latte"), "50", "5")
	f.stock(t, invdom.IngredientKey("milk"), "10000", "1000")
	f.stock(t, invdom.IngredientKey("beans"), "1000", "100")
	for ing, qty := range map[string]string{"milk": "200", "beans": "18"} {
		_, err := f.inventory.PutRecipe(f.ctx, invdom.Recipe{ProductID: "latte", IngredientID: ing, QuantityPerUnit: dec(qty)})
		require.NoError(t, err)
	}
	f.pub.Reset()
}

func (f *fixture) stock(t *testing.T, key invdom.StockKey, current, min string) {
	t.Helper()
	_, err := f.inventory.CreateLevel(f.ctx, invdom.StockLevel{
		EntityType: key.EntityType,
		EntityID:   key.EntityID,
		Name:       key.EntityID,
		Unit:       "unit",
		Current:    dec(current),
		Min:        dec(min),
		Max:        dec(current).Add(dec(min)),
		Active:     true,
	})
	require.NoError(t, err)
}

func (f *fixture) level(t *testing.T, key invdom.StockKey) decimal.Decimal {
	t.Helper()
	l, err := f.inventory.GetStock(f.ctx, key)
	require.NoError(t, err)
	return l.Current
}

func (f *fixture) customer(t *testing.T, points int64) loyaltydom.Customer {
	t.Helper()
	c, err := f.loyalty.CreateCustomer(f.ctx, loyaltydom.Customer{Name: "Rina", LoyaltyPoints: points})
	require.NoError(t, err)
	return c
}

func (f *fixture) promotion(t *testing.T, code string, percent string, limit *int) promodom.Promotion {
	t.Helper()
	p, err := f.promos.Create(f.ctx, promodom.Promotion{
		Code:         code,
		Name:         code,
		Scope:        promodom.ScopeUniversal,
		DiscountType: promodom.Percentage,
		Value:        dec(percent),
		StartDate:    time.Now().Add(-24 * time.Hour),
		EndDate:      time.Now().Add(24 * time.Hour),
		UsageLimit:   limit,
		Active:       true,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) cashOrder(t *testing.T, in application.CreateOrderInput) domain.Order {
	t.Helper()
	in.PaymentMethod = domain.PaymentCash
	o, err := f.orders.CreateOrder(f.ctx, in)
	require.NoError(t, err)
	return o
}

// advance walks o through each status in order.
func (f *fixture) advance(t *testing.T, id string, statuses ...domain.OrderStatus) domain.Order {
	t.Helper()
	var (
		o   domain.Order
		err error
	)
	for _, s := range statuses {
		o, err = f.orders.UpdateOrderStatus(f.ctx, id, s)
		require.NoError(t, err, "transition to %s", s)
	}
	return o
}

func latte(qty int) application.ItemInput {
	return application.ItemInput{ProductID: "latte", Quantity: qty}
}

func intPtr(n int) *int { return &n }

func invAdjust(ingredient, delta string) invapp.AdjustStockInput {
	return invapp.AdjustStockInput{Key: invdom.IngredientKey(ingredient), Delta: dec(delta), Type: invdom.TxAdjustment, Reason: "spillage"}
}
