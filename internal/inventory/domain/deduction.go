package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleLine is one order line as the deduction engine sees it.
type SaleLine struct {
	ProductID string
	Quantity  int
}

// DeductionLine records what one stock row gave up for an order.
type DeductionLine struct {
	EntityType   EntityType      `json:"entityType"`
	EntityID     string          `json:"entityId"`
	Quantity     decimal.Decimal `json:"quantity"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
}

func (l DeductionLine) Key() StockKey {
	return StockKey{EntityType: l.EntityType, EntityID: l.EntityID}
}

// Deduction is the idempotency record keyed by order id.
type Deduction struct {
	OrderID    string
	Lines      []DeductionLine
	DeductedAt time.Time
	ReversedAt *time.Time
}

type DeductionResult struct {
	OrderID string          `json:"orderId"`
	Lines   []DeductionLine `json:"lines"`
	// Alerts raised or escalated while applying the lines.
	Alerts []Alert `json:"alerts,omitempty"`
	// Replayed is true when the result comes from an earlier call.
	Replayed bool `json:"replayed"`
}
