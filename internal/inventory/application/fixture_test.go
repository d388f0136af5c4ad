package application_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/restaurant-pos/internal/broadcast"
	"github.com/dmehra2102/restaurant-pos/internal/inventory/application"
	"github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
	"github.com/dmehra2102/restaurant-pos/internal/inventory/infrastructure/memory"
	"github.com/dmehra2102/restaurant-pos/pkg/actor"
	"github.com/dmehra2102/restaurant-pos/pkg/logging"
	"github.com/dmehra2102/restaurant-pos/pkg/memtx"
)

var cashier = actor.Actor{ID: "cashier-1", Kind: actor.KindStaff}

type fixture struct {
	db    *memtx.DB
	repos *memory.Repositories
	svc   *application.Service
	pub   *broadcast.Recorder
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memtx.New()
	repos := memory.New(db)
	pub := &broadcast.Recorder{}
	svc := application.NewService(logging.Discard(), db, repos.Stock, repos.Recipes, repos.Alerts, repos.Deductions, pub)
	return &fixture{db: db, repos: repos, svc: svc, pub: pub, ctx: actor.WithActor(context.Background(), cashier)}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func (f *fixture) stock(t *testing.T, key domain.StockKey, current, min, max string) {
	t.Helper()
	_, err := f.svc.CreateLevel(f.ctx, domain.StockLevel{
		EntityType: key.EntityType,
		EntityID:   key.EntityID,
		Name:       key.EntityID,
		Unit:       "unit",
		Current:    dec(current),
		Min:        dec(min),
		Max:        dec(max),
		Active:     true,
	})
	require.NoError(t, err)
}

func (f *fixture) recipe(t *testing.T, productID, ingredientID, perUnit string) {
	t.Helper()
	_, err := f.svc.PutRecipe(f.ctx, domain.Recipe{ProductID: productID, IngredientID: ingredientID, QuantityPerUnit: dec(perUnit)})
	require.NoError(t, err)
}

func (f *fixture) level(t *testing.T, key domain.StockKey) decimal.Decimal {
	t.Helper()
	l, err := f.svc.GetStock(f.ctx, key)
	require.NoError(t, err)
	return l.Current
}

func (f *fixture) sales(t *testing.T, key domain.StockKey) []domain.StockTransaction {
	t.Helper()
	txs, err := f.svc.Transactions(f.ctx, key, 100)
	require.NoError(t, err)
	var out []domain.StockTransaction
	for _, tx := range txs {
		if tx.Type == domain.TxSale {
			out = append(out, tx)
		}
	}
	return out
}
