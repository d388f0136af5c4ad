// Package domain holds the payment gateway's result messages.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	EventPaymentSucceeded = "PaymentSucceeded"
	EventPaymentFailed    = "PaymentFailed"
)

var ErrUnknownEvent = errors.New("unknown payment event")

// Result is the body of both gateway events.
type Result struct {
	OrderID string `json:"orderId"`
	Ref     string `json:"ref"`
	Reason  string `json:"reason,omitempty"`
}

// Succeeded reports whether eventType is a success outcome, or
// ErrUnknownEvent for anything the gateway does not send.
func Succeeded(eventType string) (bool, error) {
	switch eventType {
	case EventPaymentSucceeded:
		return true, nil
	case EventPaymentFailed:
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownEvent, eventType)
}

func Decode(raw []byte) (Result, error) {
	var r Result
	if err := json.Unmarshal(raw, &r); err != nil {
		return Result{}, err
	}
	if r.OrderID == "" {
		return Result{}, errors.New("payment event has no orderId")
	}
	return r, nil
}
