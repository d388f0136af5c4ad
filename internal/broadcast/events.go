// Package broadcast fans committed state changes out to display clients.
// Publishing never blocks the caller; delivery happens on the Hub's own
// goroutine and failures are only logged.
package broadcast

import (
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeOrderUpdated Type = "order_updated"
	TypeStockUpdated Type = "stock_updated"
	TypeAlertRaised  Type = "alert_raised"
)

type Event struct {
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

type OrderPayload struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	Status      string `json:"status"`
}

type StockPayload struct {
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	NewLevel   decimal.Decimal `json:"newLevel"`
}

type AlertPayload struct {
	AlertID    string `json:"alertId"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Type       string `json:"type"`
}

func OrderUpdated(orderID, number, status string) Event {
	return Event{
		Type:       TypeOrderUpdated,
		OccurredAt: time.Now().UTC(),
		Payload:    OrderPayload{OrderID: orderID, OrderNumber: number, Status: status},
	}
}

func StockUpdated(entityType, entityID string, newLevel decimal.Decimal) Event {
	return Event{
		Type:       TypeStockUpdated,
		OccurredAt: time.Now().UTC(),
		Payload:    StockPayload{EntityType: entityType, EntityID: entityID, NewLevel: newLevel},
	}
}

func AlertRaised(alertID, entityType, entityID, alertType string) Event {
	return Event{
		Type:       TypeAlertRaised,
		OccurredAt: time.Now().UTC(),
		Payload:    AlertPayload{AlertID: alertID, EntityType: entityType, EntityID: entityID, Type: alertType},
	}
}

// Publisher is the capability injected into the state machine and services.
type Publisher interface {
	Publish(events ...Event)
}
