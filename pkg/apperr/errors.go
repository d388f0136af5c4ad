// Package apperr holds the closed set of business errors returned by the engine.
//
// Every variant implements Error. Callers dispatch on Kind (or errors.As into
// the concrete variant when they need its fields); the set is sealed so no
// package outside apperr can add a variant.
package apperr

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidTransition
	KindInsufficientStock
	KindPromotionIneligible
	KindRedemption
	KindConcurrencyConflict
	KindNotFound
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindInvalidTransition:
		return "invalid_transition"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindPromotionIneligible:
		return "promotion_ineligible"
	case KindRedemption:
		return "redemption_error"
	case KindConcurrencyConflict:
		return "concurrency_conflict"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_error"
	default:
		return "internal"
	}
}

type Error interface {
	error
	Kind() Kind
	sealed()
}

// KindOf returns the Kind of the first apperr variant in err's chain, or
// KindUnknown when there is none.
func KindOf(err error) Kind {
	var e Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return KindUnknown
}

// Is reports whether err carries a variant of kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}
func (*InvalidTransitionError) Kind() Kind { return KindInvalidTransition }
func (*InvalidTransitionError) sealed()    {}

type InsufficientStockError struct {
	EntityType string
	EntityID   string
	Name       string
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.EntityID
	}
	return fmt.Sprintf("insufficient stock for %s %s: available %s, requested %s",
		e.EntityType, name, e.Available.String(), e.Requested.String())
}
func (*InsufficientStockError) Kind() Kind { return KindInsufficientStock }
func (*InsufficientStockError) sealed()    {}

type IneligibleReason string

const (
	ReasonInactive            IneligibleReason = "inactive"
	ReasonNotStarted          IneligibleReason = "not_started"
	ReasonExpired             IneligibleReason = "expired"
	ReasonOutsideHours        IneligibleReason = "outside_hours"
	ReasonMinOrderNotMet      IneligibleReason = "min_order_not_met"
	ReasonScopeMismatch       IneligibleReason = "scope_mismatch"
	ReasonUsageLimitReached   IneligibleReason = "usage_limit_reached"
	ReasonPerUserLimitReached IneligibleReason = "per_user_limit_reached"
)

type PromotionIneligibleError struct {
	Code   string
	Reason IneligibleReason
}

func (e *PromotionIneligibleError) Error() string {
	return fmt.Sprintf("promotion %s not applicable: %s", e.Code, e.Reason)
}
func (*PromotionIneligibleError) Kind() Kind { return KindPromotionIneligible }
func (*PromotionIneligibleError) sealed()    {}

type RedemptionError struct {
	CustomerID string
	Requested  int64
	Balance    int64
	Reason     string
}

func (e *RedemptionError) Error() string {
	return fmt.Sprintf("cannot redeem %d points for customer %s (balance %d): %s",
		e.Requested, e.CustomerID, e.Balance, e.Reason)
}
func (*RedemptionError) Kind() Kind { return KindRedemption }
func (*RedemptionError) sealed()    {}

type ConcurrencyConflictError struct {
	Resource string
	ID       string
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently", e.Resource, e.ID)
}
func (*ConcurrencyConflictError) Kind() Kind { return KindConcurrencyConflict }
func (*ConcurrencyConflictError) sealed()    {}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}
func (*NotFoundError) Kind() Kind { return KindNotFound }
func (*NotFoundError) sealed()    {}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}
func (*ValidationError) Kind() Kind { return KindValidation }
func (*ValidationError) sealed()    {}

func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func Conflict(resource, id string) error {
	return &ConcurrencyConflictError{Resource: resource, ID: id}
}

func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
