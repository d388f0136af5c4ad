package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type AlertType string

const (
	AlertLowStock   AlertType = "low_stock"
	AlertOutOfStock AlertType = "out_of_stock"
)

type Alert struct {
	ID         string     `json:"id"`
	EntityType EntityType `json:"entityType"`
	EntityID   string     `json:"entityId"`
	Type       AlertType  `json:"type"`
	Message    string     `json:"message"`
	Read       bool       `json:"isRead"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	// Raised is set by evaluation when the alert was created or changed type.
	Raised bool `json:"-"`
}

func (a Alert) Key() StockKey {
	return StockKey{EntityType: a.EntityType, EntityID: a.EntityID}
}

// Classify maps a level to an alert type: zero is out of stock, anything up
// to and including min is low. ok is false when no alert applies.
func Classify(level, min decimal.Decimal) (t AlertType, ok bool) {
	switch {
	case !level.IsPositive():
		return AlertOutOfStock, true
	case level.LessThanOrEqual(min):
		return AlertLowStock, true
	}
	return "", false
}

func AlertMessage(key StockKey, t AlertType, level, min decimal.Decimal) string {
	if t == AlertOutOfStock {
		return fmt.Sprintf("%s %s is out of stock", key.EntityType, key.EntityID)
	}
	return fmt.Sprintf("%s %s is low on stock: %s left (min %s)", key.EntityType, key.EntityID, level, min)
}
