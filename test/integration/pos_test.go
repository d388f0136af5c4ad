//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/restaurant-pos/internal/app"
	"github.com/dmehra2102/restaurant-pos/internal/broadcast"
	catalogdom "github.com/dmehra2102/restaurant-pos/internal/catalog/domain"
	invdom "github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
	loyaltydom "github.com/dmehra2102/restaurant-pos/internal/loyalty/domain"
	orderapp "github.com/dmehra2102/restaurant-pos/internal/order/application"
	"github.com/dmehra2102/restaurant-pos/internal/order/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/actor"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/config"
	"github.com/dmehra2102/restaurant-pos/pkg/logging"
	"github.com/dmehra2102/restaurant-pos/pkg/outbox"
	"github.com/dmehra2102/restaurant-pos/pkg/pgtx"
	"github.com/dmehra2102/restaurant-pos/pkg/tracing"
)

var env *Env

func TestMain(m *testing.M) {
	ctx := context.Background()
	var err error
	env, err = Setup(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "integration setup:", err)
		os.Exit(1)
	}
	code := m.Run()
	env.Teardown(ctx)
	os.Exit(code)
}

var cashier = actor.Actor{ID: "cashier-1", Kind: actor.KindStaff}

// newEngine migrates a fresh schema and seeds a latte with a tracked recipe.
func newEngine(t *testing.T) (*app.App, *pgtx.Transactor, context.Context) {
	t.Helper()
	ctx := actor.WithActor(context.Background(), cashier)
	pool, err := pgxpool.New(ctx, env.PGURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `DROP SCHEMA public CASCADE; CREATE SCHEMA public;`)
	require.NoError(t, err)
	db := pgtx.New(logging.Discard(), pool)
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx), "schema must be re-appliable")

	a := app.NewPostgres(logging.Discard(), db, app.Options{Rules: config.DefaultRules(), Publisher: &broadcast.Recorder{}})

	_, err = a.Catalog.SaveProduct(ctx, catalogdom.Product{ID: "latte", Name: "Latte", Price: 35_000, Active: true})
	require.NoError(t, err)
	for _, l := range []invdom.StockLevel{
		{EntityType: invdom.EntityIngredient, EntityID: "milk", Name: "Milk", Unit: "ml", Current: decimal.NewFromInt(1000), Min: decimal.NewFromInt(300), Max: decimal.NewFromInt(5000), Active: true},
		{EntityType: invdom.EntityIngredient, EntityID: "beans", Name: "Beans", Unit: "g", Current: decimal.NewFromInt(100), Min: decimal.NewFromInt(10), Max: decimal.NewFromInt(1000), Active: true},
	} {
		_, err := a.Inventory.CreateLevel(ctx, l)
		require.NoError(t, err)
	}
	for ing, qty := range map[string]int64{"milk": 200, "beans": 18} {
		_, err := a.Inventory.PutRecipe(ctx, invdom.Recipe{ProductID: "latte", IngredientID: ing, QuantityPerUnit: decimal.NewFromInt(qty), Unit: "unit"})
		require.NoError(t, err)
	}
	return a, db, ctx
}

func complete(t *testing.T, a *app.App, ctx context.Context, id string) domain.Order {
	t.Helper()
	var o domain.Order
	var err error
	for _, s := range []domain.OrderStatus{domain.StatusConfirmed, domain.StatusPreparing, domain.StatusReady, domain.StatusCompleted} {
		o, err = a.Orders.UpdateOrderStatus(ctx, id, s)
		require.NoError(t, err, "transition to %s", s)
	}
	return o
}

func level(t *testing.T, a *app.App, ctx context.Context, id string) decimal.Decimal {
	t.Helper()
	l, err := a.Inventory.GetStock(ctx, invdom.IngredientKey(id))
	require.NoError(t, err)
	return l.Current
}

func TestPostgresCompletionDeductsAndEarns(t *testing.T) {
	a, _, ctx := newEngine(t)
	c, err := a.Loyalty.CreateCustomer(ctx, loyaltydom.Customer{Name: "Rina"})
	require.NoError(t, err)

	o, err := a.Orders.CreateOrder(ctx, orderapp.CreateOrderInput{
		Items:         []orderapp.ItemInput{{ProductID: "latte", Quantity: 2}},
		PaymentMethod: domain.PaymentCash,
		CustomerID:    c.ID,
	})
	require.NoError(t, err)
	assert.Regexp(t, `^ORD-\d{8}-0001$`, o.Number)

	done := complete(t, a, ctx, o.ID)
	assert.Equal(t, domain.PaymentPaid, done.PaymentStatus)
	assert.True(t, level(t, a, ctx, "milk").Equal(decimal.NewFromInt(600)))
	assert.True(t, level(t, a, ctx, "beans").Equal(decimal.NewFromInt(64)))

	rec, err := a.Loyalty.Reconcile(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.Equal(t, int64(7), rec.Balance)

	history, err := a.Orders.History(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, history, 5)
}

func TestPostgresInsufficientStockRollsBack(t *testing.T) {
	a, _, ctx := newEngine(t)

	o, err := a.Orders.CreateOrder(ctx, orderapp.CreateOrderInput{
		Items:         []orderapp.ItemInput{{ProductID: "latte", Quantity: 6}},
		PaymentMethod: domain.PaymentCash,
	})
	require.NoError(t, err)
	for _, s := range []domain.OrderStatus{domain.StatusConfirmed, domain.StatusPreparing, domain.StatusReady} {
		_, err = a.Orders.UpdateOrderStatus(ctx, o.ID, s)
		require.NoError(t, err)
	}

	_, err = a.Orders.UpdateOrderStatus(ctx, o.ID, domain.StatusCompleted)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInsufficientStock))

	got, err := a.Orders.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, got.Status)
	assert.True(t, level(t, a, ctx, "milk").Equal(decimal.NewFromInt(1000)))
}

func TestPostgresConcurrentCompletionDeductsOnce(t *testing.T) {
	a, _, ctx := newEngine(t)

	o, err := a.Orders.CreateOrder(ctx, orderapp.CreateOrderInput{
		Items:         []orderapp.ItemInput{{ProductID: "latte", Quantity: 1}},
		PaymentMethod: domain.PaymentCash,
	})
	require.NoError(t, err)
	for _, s := range []domain.OrderStatus{domain.StatusConfirmed, domain.StatusPreparing, domain.StatusReady} {
		_, err = a.Orders.UpdateOrderStatus(ctx, o.ID, s)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = a.Orders.UpdateOrderStatus(ctx, o.ID, domain.StatusCompleted)
		}()
	}
	wg.Wait()

	got, err := a.Orders.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.True(t, level(t, a, ctx, "milk").Equal(decimal.NewFromInt(800)))
}

func TestRelayPublishesOutboxToKafka(t *testing.T) {
	a, _, ctx := newEngine(t)

	o, err := a.Orders.CreateOrder(ctx, orderapp.CreateOrderInput{
		Items:         []orderapp.ItemInput{{ProductID: "latte", Quantity: 1}},
		PaymentMethod: domain.PaymentCash,
	})
	require.NoError(t, err)

	topic := "pos.events.it"
	writer := outbox.NewKafkaWriter(env.KAddr)
	t.Cleanup(func() { _ = writer.Close() })
	relay := outbox.NewRelay(logging.Discard(), a.Outbox, outbox.NewDispatcher(logging.Discard(), writer, topic), "it-relay")

	sent, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	reader := kafka.NewReader(kafka.ReaderConfig{Brokers: env.KAddr, Topic: topic, GroupID: "it"})
	t.Cleanup(func() { _ = reader.Close() })
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err)
	assert.Equal(t, o.ID, string(msg.Key))
	assert.Equal(t, domain.EventOrderCreated, tracing.HeaderValue(msg.Headers, "event_type"))

	again, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)
}
