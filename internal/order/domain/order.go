package domain

import (
	"fmt"
	"time"

	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

type OrderStatus string

const (
	StatusCreating  OrderStatus = "CREATING"
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusPreparing OrderStatus = "PREPARING"
	StatusReady     OrderStatus = "READY"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
)

var transitions = map[OrderStatus][]OrderStatus{
	StatusCreating:  {StatusPending, StatusCancelled},
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusCompleted, StatusCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusCreating, StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether to is adjacent to from.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCard   PaymentMethod = "CARD"
	PaymentOnline PaymentMethod = "ONLINE"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCard || m == PaymentOnline
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
	PaymentFailed PaymentStatus = "FAILED"
)

type Option struct {
	Name       string `json:"name"`
	ExtraPrice int64  `json:"extraPrice"`
}

type OrderItem struct {
	ProductID   string   `json:"productId"`
	ProductName string   `json:"productName"`
	Quantity    int      `json:"quantity"`
	UnitPrice   int64    `json:"unitPrice"`
	Subtotal    int64    `json:"subtotal"`
	Size        *Option  `json:"size,omitempty"`
	Toppings    []Option `json:"toppings"`
	Note        string   `json:"note,omitempty"`
}

// NewItem prices a line: base price plus the size and topping extras, times
// quantity.
func NewItem(productID, name string, basePrice int64, quantity int, size *Option, toppings []Option, note string) (OrderItem, error) {
	if quantity <= 0 {
		return OrderItem{}, apperr.Invalid("quantity", "must be positive for product %s", productID)
	}
	unit := basePrice
	if size != nil {
		if size.ExtraPrice < 0 {
			return OrderItem{}, apperr.Invalid("extraPrice", "size %q is negative for product %s", size.Name, productID)
		}
		unit += size.ExtraPrice
	}
	for _, t := range toppings {
		if t.ExtraPrice < 0 {
			return OrderItem{}, apperr.Invalid("extraPrice", "topping %q is negative for product %s", t.Name, productID)
		}
		unit += t.ExtraPrice
	}
	if unit < 0 {
		return OrderItem{}, apperr.Invalid("unitPrice", "negative for product %s", productID)
	}
	if toppings == nil {
		toppings = []Option{}
	}
	return OrderItem{
		ProductID:   productID,
		ProductName: name,
		Quantity:    quantity,
		UnitPrice:   unit,
		Subtotal:    unit * int64(quantity),
		Size:        size,
		Toppings:    toppings,
		Note:        note,
	}, nil
}

type Order struct {
	ID             string        `json:"id"`
	Number         string        `json:"orderNumber"`
	Status         OrderStatus   `json:"status"`
	Items          []OrderItem   `json:"items"`
	Subtotal       int64         `json:"subtotal"`
	DiscountAmount int64         `json:"discountAmount"`
	PointsDiscount int64         `json:"pointsDiscount"`
	TotalAmount    int64         `json:"totalAmount"`
	PaymentMethod  PaymentMethod `json:"paymentMethod"`
	PaymentStatus  PaymentStatus `json:"paymentStatus"`
	PaymentRef     string        `json:"paymentRef,omitempty"`
	CustomerID     string        `json:"customerId,omitempty"`
	PromotionCode  string        `json:"promotionCode,omitempty"`
	PointsRedeemed int64         `json:"pointsRedeemed"`
	Version        int64         `json:"version"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
	PaidAt         *time.Time    `json:"paidAt,omitempty"`
	CompletedAt    *time.Time    `json:"completedAt,omitempty"`
	CancelledAt    *time.Time    `json:"cancelledAt,omitempty"`
}

func Subtotal(items []OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Subtotal
	}
	return total
}

// FormatNumber renders the n-th order of day as ORD-YYYYMMDD-NNNN.
func FormatNumber(day time.Time, n int) string {
	return fmt.Sprintf("ORD-%s-%04d", day.Format("20060102"), n)
}

// StatusChange is one row of the order audit trail.
type StatusChange struct {
	OrderID   string      `json:"orderId"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	ActorID   string      `json:"actorId"`
	ActorKind string      `json:"actorKind"`
	Reason    string      `json:"reason,omitempty"`
	At        time.Time   `json:"at"`
}
