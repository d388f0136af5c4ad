package domain

// Event types written to the outbox.
const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type OrderCreated struct {
	OrderID       string      `json:"orderId"`
	OrderNumber   string      `json:"orderNumber"`
	Status        OrderStatus `json:"status"`
	CustomerID    string      `json:"customerId,omitempty"`
	TotalAmount   int64       `json:"totalAmount"`
	PaymentMethod string      `json:"paymentMethod"`
	Items         []OrderItem `json:"items"`
}

type OrderStatusChanged struct {
	OrderID     string      `json:"orderId"`
	OrderNumber string      `json:"orderNumber"`
	From        OrderStatus `json:"from"`
	To          OrderStatus `json:"to"`
	Version     int64       `json:"version"`
	Actor       string      `json:"actor"`
	Reason      string      `json:"reason,omitempty"`
}
