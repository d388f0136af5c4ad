// Package app wires the bounded contexts into one engine over a single
// transactional store, for either store driver.
package app

import (
	"log/slog"
	"time"

	"github.com/dmehra2102/restaurant-pos/internal/broadcast"
	catalogapp "github.com/dmehra2102/restaurant-pos/internal/catalog/application"
	catalogmem "github.com/dmehra2102/restaurant-pos/internal/catalog/infrastructure/memory"
	catalogpg "github.com/dmehra2102/restaurant-pos/internal/catalog/infrastructure/postgres"
	invapp "github.com/dmehra2102/restaurant-pos/internal/inventory/application"
	invmem "github.com/dmehra2102/restaurant-pos/internal/inventory/infrastructure/memory"
	invpg "github.com/dmehra2102/restaurant-pos/internal/inventory/infrastructure/postgres"
	loyaltyapp "github.com/dmehra2102/restaurant-pos/internal/loyalty/application"
	loyaltymem "github.com/dmehra2102/restaurant-pos/internal/loyalty/infrastructure/memory"
	loyaltypg "github.com/dmehra2102/restaurant-pos/internal/loyalty/infrastructure/postgres"
	orderapp "github.com/dmehra2102/restaurant-pos/internal/order/application"
	ordermem "github.com/dmehra2102/restaurant-pos/internal/order/infrastructure/memory"
	orderpg "github.com/dmehra2102/restaurant-pos/internal/order/infrastructure/postgres"
	promoapp "github.com/dmehra2102/restaurant-pos/internal/promotion/application"
	promomem "github.com/dmehra2102/restaurant-pos/internal/promotion/infrastructure/memory"
	promopg "github.com/dmehra2102/restaurant-pos/internal/promotion/infrastructure/postgres"
	"github.com/dmehra2102/restaurant-pos/pkg/cache"
	"github.com/dmehra2102/restaurant-pos/pkg/config"
	"github.com/dmehra2102/restaurant-pos/pkg/memtx"
	"github.com/dmehra2102/restaurant-pos/pkg/outbox"
	"github.com/dmehra2102/restaurant-pos/pkg/pgtx"
)

// OutboxStore is both ends of the outbox: written inside transactions,
// drained by the relay.
type OutboxStore interface {
	outbox.Writer
	outbox.Store
}

type Options struct {
	Rules     config.Rules
	Cache     cache.Cache
	Publisher broadcast.Publisher
}

type App struct {
	Log        *slog.Logger
	Catalog    *catalogapp.Service
	Inventory  *invapp.Service
	Promotions *promoapp.Validator
	Loyalty    *loyaltyapp.Accountant
	Orders     *orderapp.Service
	Reaper     *orderapp.Reaper
	Outbox     OutboxStore
}

type repositories struct {
	tx         orderapp.Transactor
	catalog    catalogapp.Repository
	stock      invapp.StockRepository
	recipes    invapp.RecipeRepository
	alerts     invapp.AlertRepository
	deductions invapp.DeductionRepository
	promotions promoapp.Repository
	customers  loyaltyapp.Repository
	orders     orderapp.OrderRepository
	outbox     OutboxStore
}

// NewMemory builds the engine over an in-memory store (dev mode and tests).
func NewMemory(log *slog.Logger, db *memtx.DB, opts Options) *App {
	inv := invmem.New(db)
	return build(log, repositories{
		tx:         db,
		catalog:    catalogmem.New(db),
		stock:      inv.Stock,
		recipes:    inv.Recipes,
		alerts:     inv.Alerts,
		deductions: inv.Deductions,
		promotions: promomem.New(db),
		customers:  loyaltymem.New(db),
		orders:     ordermem.New(db),
		outbox:     outbox.NewMemoryStore(db),
	}, opts)
}

// NewPostgres builds the engine over Postgres; every repository joins the
// transaction carried in the context by db.
func NewPostgres(log *slog.Logger, db *pgtx.Transactor, opts Options) *App {
	inv := invpg.NewRepository(log, db)
	return build(log, repositories{
		tx:         db,
		catalog:    catalogpg.NewRepository(db),
		stock:      inv.Stock(),
		recipes:    inv.Recipes(),
		alerts:     inv.Alerts(),
		deductions: inv.Deductions(),
		promotions: promopg.NewRepository(db),
		customers:  loyaltypg.NewRepository(db),
		orders:     orderpg.NewRepository(log, db),
		outbox:     outbox.NewPostgresStore(log, db),
	}, opts)
}

func build(log *slog.Logger, r repositories, opts Options) *App {
	if opts.Cache == nil {
		opts.Cache = cache.NewMemory()
	}
	if opts.Publisher == nil {
		opts.Publisher = &broadcast.Recorder{}
	}
	rules := opts.Rules
	if rules.CategoryCacheTTL <= 0 {
		rules.CategoryCacheTTL = 5 * time.Minute
	}

	catalog := catalogapp.NewService(log.With("component", "catalog"), r.catalog, opts.Cache, rules.CategoryCacheTTL)
	inventory := invapp.NewService(log.With("component", "inventory"), r.tx, r.stock, r.recipes, r.alerts, r.deductions, opts.Publisher)
	promotions := promoapp.NewValidator(log.With("component", "promotion"), r.tx, r.promotions, rules.Location())
	loyalty := loyaltyapp.NewAccountant(log.With("component", "loyalty"), r.tx, r.customers, loyaltyapp.RulesFromConfig(rules.Loyalty))

	deps := orderapp.Deps{
		Tx:        r.tx,
		Orders:    r.orders,
		Stock:     inventory.Engine,
		Promos:    promotions,
		Loyalty:   loyalty,
		Catalog:   catalog,
		Outbox:    r.outbox,
		Publisher: opts.Publisher,
	}
	orderLog := log.With("component", "order")
	machine := orderapp.NewStateMachine(orderLog, deps, rules.DeductionPoint)
	orders := orderapp.NewService(orderLog, deps, machine, rules.Location())

	return &App{
		Log:        log,
		Catalog:    catalog,
		Inventory:  inventory,
		Promotions: promotions,
		Loyalty:    loyalty,
		Orders:     orders,
		Reaper:     orderapp.NewReaper(orderLog, orders, rules.CreatingTTL),
		Outbox:     r.outbox,
	}
}
