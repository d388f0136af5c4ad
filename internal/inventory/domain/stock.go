package domain

import (
	"cmp"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type EntityType string

const (
	EntityProduct    EntityType = "product"
	EntityIngredient EntityType = "ingredient"
)

func (t EntityType) Valid() bool {
	return t == EntityProduct || t == EntityIngredient
}

// StockKey identifies one stock row. Product and ingredient stock share a
// table keyed by (EntityType, EntityID).
type StockKey struct {
	EntityType EntityType `json:"entityType"`
	EntityID   string     `json:"entityId"`
}

func ProductKey(id string) StockKey    { return StockKey{EntityType: EntityProduct, EntityID: id} }
func IngredientKey(id string) StockKey { return StockKey{EntityType: EntityIngredient, EntityID: id} }

func (k StockKey) String() string {
	return string(k.EntityType) + ":" + k.EntityID
}

// Compare orders keys for lock acquisition.
func (k StockKey) Compare(o StockKey) int {
	if c := cmp.Compare(k.EntityType, o.EntityType); c != 0 {
		return c
	}
	return cmp.Compare(k.EntityID, o.EntityID)
}

type StockLevel struct {
	EntityType  EntityType      `json:"entityType"`
	EntityID    string          `json:"entityId"`
	Name        string          `json:"name"`
	Unit        string          `json:"unit"`
	Current     decimal.Decimal `json:"currentStock"`
	Min         decimal.Decimal `json:"minStock"`
	Max         decimal.Decimal `json:"maxStock"`
	Active      bool            `json:"isActive"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

func (l StockLevel) Key() StockKey {
	return StockKey{EntityType: l.EntityType, EntityID: l.EntityID}
}

// Validate checks the row invariants: Current >= 0 and Min <= Max.
func (l StockLevel) Validate() error {
	switch {
	case !l.EntityType.Valid():
		return fmt.Errorf("unknown entity type %q", l.EntityType)
	case l.EntityID == "":
		return fmt.Errorf("entity id is required")
	case l.Current.IsNegative():
		return fmt.Errorf("current stock must not be negative")
	case l.Min.IsNegative():
		return fmt.Errorf("min stock must not be negative")
	case l.Min.GreaterThan(l.Max):
		return fmt.Errorf("min stock %s exceeds max stock %s", l.Min, l.Max)
	}
	return nil
}

type TxType string

const (
	TxSale       TxType = "sale"
	TxPurchase   TxType = "purchase"
	TxAdjustment TxType = "adjustment"
	TxReturn     TxType = "return"
)

// CheckDelta enforces the sign each transaction type implies.
func (t TxType) CheckDelta(delta decimal.Decimal) error {
	if delta.IsZero() {
		return fmt.Errorf("quantity must not be zero")
	}
	switch t {
	case TxSale:
		if delta.IsPositive() {
			return fmt.Errorf("sale must decrease stock")
		}
	case TxPurchase, TxReturn:
		if delta.IsNegative() {
			return fmt.Errorf("%s must increase stock", t)
		}
	case TxAdjustment:
	default:
		return fmt.Errorf("unknown transaction type %q", t)
	}
	return nil
}

// StockTransaction is one append-only ledger entry.
type StockTransaction struct {
	ID           int64           `json:"id"`
	EntityType   EntityType      `json:"entityType"`
	EntityID     string          `json:"entityId"`
	Type         TxType          `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	Reason       string          `json:"reason"`
	Reference    string          `json:"reference,omitempty"`
	Actor        string          `json:"actor"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Recipe is one ingredient line of a product.
type Recipe struct {
	ProductID       string          `json:"productId"`
	IngredientID    string          `json:"ingredientId"`
	QuantityPerUnit decimal.Decimal `json:"quantityPerUnit"`
	Unit            string          `json:"unit"`
	Position        int             `json:"position"`
}

func (r Recipe) Validate() error {
	switch {
	case r.ProductID == "" || r.IngredientID == "":
		return fmt.Errorf("product and ingredient ids are required")
	case !r.QuantityPerUnit.IsPositive():
		return fmt.Errorf("quantity per unit must be positive")
	}
	return nil
}
