package application

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/restaurant-pos/internal/broadcast"
	"github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/actor"
)

// Service is the operator-facing surface of the inventory context: manual
// adjustments, thresholds, recipes and alert acknowledgement. Order-driven
// deductions go through DeductionEngine from the order state machine.
type Service struct {
	log       *slog.Logger
	ledger    *Ledger
	alerts    *AlertGenerator
	recipes   *RecipeResolver
	Engine    *DeductionEngine
	publisher broadcast.Publisher
}

func NewService(log *slog.Logger, tx Transactor, stock StockRepository, recipes RecipeRepository, alerts AlertRepository, deductions DeductionRepository, publisher broadcast.Publisher) *Service {
	gen := NewAlertGenerator(log, tx, alerts)
	ledger := NewLedger(log, tx, stock, gen)
	resolver := NewRecipeResolver(tx, recipes, stock)
	return &Service{
		log:       log,
		ledger:    ledger,
		alerts:    gen,
		recipes:   resolver,
		Engine:    NewDeductionEngine(log, tx, stock, resolver, deductions, ledger),
		publisher: publisher,
	}
}

type AdjustStockInput struct {
	Key    domain.StockKey
	Delta  decimal.Decimal
	Type   domain.TxType
	Reason string
}

func (s *Service) AdjustStock(ctx context.Context, in AdjustStockInput) (AdjustResult, error) {
	if in.Type == "" {
		in.Type = domain.TxAdjustment
	}
	who := actor.OrSystem(ctx)
	res, err := s.ledger.Adjust(ctx, in.Key, in.Delta, in.Type, in.Reason, who)
	if err != nil {
		return AdjustResult{}, err
	}
	s.log.Info("stock adjusted", "entity", in.Key.String(), "delta", in.Delta.String(), "balance", res.Level.Current.String(), "actor", who.String())
	s.publishLevel(res)
	return res, nil
}

func (s *Service) CreateLevel(ctx context.Context, level domain.StockLevel) (domain.StockLevel, error) {
	res, err := s.ledger.CreateLevel(ctx, level, actor.OrSystem(ctx))
	if err != nil {
		return domain.StockLevel{}, err
	}
	s.publishLevel(res)
	return res.Level, nil
}

func (s *Service) UpdateThresholds(ctx context.Context, key domain.StockKey, t Thresholds) (domain.StockLevel, error) {
	res, err := s.ledger.UpdateThresholds(ctx, key, t)
	if err != nil {
		return domain.StockLevel{}, err
	}
	s.publishLevel(res)
	return res.Level, nil
}

// publishLevel broadcasts the row and, when evaluation raised or escalated
// one, its alert.
func (s *Service) publishLevel(res AdjustResult) {
	events := []broadcast.Event{broadcast.StockUpdated(string(res.Level.EntityType), res.Level.EntityID, res.Level.Current)}
	if res.Alert != nil && res.Alert.Raised {
		events = append(events, AlertEvent(*res.Alert))
	}
	s.publisher.Publish(events...)
}

func (s *Service) GetStock(ctx context.Context, key domain.StockKey) (domain.StockLevel, error) {
	return s.ledger.Get(ctx, key)
}

func (s *Service) Snapshot(ctx context.Context, filter StockFilter) ([]domain.StockLevel, error) {
	return s.ledger.Snapshot(ctx, filter)
}

func (s *Service) Transactions(ctx context.Context, key domain.StockKey, limit int) ([]domain.StockTransaction, error) {
	return s.ledger.Transactions(ctx, key, limit)
}

func (s *Service) MarkAlertRead(ctx context.Context, alertID string) (domain.Alert, error) {
	return s.alerts.MarkRead(ctx, alertID)
}

func (s *Service) UnreadAlerts(ctx context.Context) ([]domain.Alert, error) {
	return s.alerts.ListUnread(ctx)
}

func (s *Service) Recipe(ctx context.Context, productID string) ([]domain.Recipe, error) {
	return s.recipes.Resolve(ctx, productID)
}

func (s *Service) PutRecipe(ctx context.Context, r domain.Recipe) (domain.Recipe, error) {
	return s.recipes.Put(ctx, r)
}

func (s *Service) DeleteRecipe(ctx context.Context, productID, ingredientID string) error {
	return s.recipes.Delete(ctx, productID, ingredientID)
}

// AlertEvent renders an alert as an alert_raised broadcast.
func AlertEvent(a domain.Alert) broadcast.Event {
	return broadcast.AlertRaised(a.ID, string(a.EntityType), a.EntityID, string(a.Type))
}

// StockEvents renders the rows touched by a deduction or reversal, plus any
// alerts it raised.
func StockEvents(res domain.DeductionResult) []broadcast.Event {
	events := make([]broadcast.Event, 0, len(res.Lines)+len(res.Alerts))
	for _, l := range res.Lines {
		events = append(events, broadcast.StockUpdated(string(l.EntityType), l.EntityID, l.BalanceAfter))
	}
	for _, a := range res.Alerts {
		events = append(events, AlertEvent(a))
	}
	return events
}
