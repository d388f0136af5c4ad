package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

type Scope string

const (
	ScopeProduct   Scope = "PRODUCT"
	ScopeCategory  Scope = "CATEGORY"
	ScopeCustomer  Scope = "CUSTOMER"
	ScopeTimeBased Scope = "TIME_BASED"
	ScopeUniversal Scope = "UNIVERSAL"
)

type DiscountType string

const (
	Percentage  DiscountType = "PERCENTAGE"
	FixedAmount DiscountType = "FIXED_AMOUNT"
)

type Promotion struct {
	ID                string          `json:"id"`
	Code              string          `json:"code"`
	Name              string          `json:"name"`
	Scope             Scope           `json:"scope"`
	DiscountType      DiscountType    `json:"discountType"`
	Value             decimal.Decimal `json:"value"`
	MinOrderAmount    int64           `json:"minOrderAmount"`
	MaxDiscountAmount *int64          `json:"maxDiscountAmount,omitempty"`
	ProductIDs        []string        `json:"productIds"`
	CategoryIDs       []string        `json:"categoryIds"`
	MembershipLevels  []string        `json:"membershipLevels"`
	StartDate         time.Time       `json:"startDate"`
	EndDate           time.Time       `json:"endDate"`
	// StartTime and EndTime bound the time of day as HH:MM; both empty means
	// all day. An end before the start wraps past midnight.
	StartTime    string    `json:"startTime,omitempty"`
	EndTime      string    `json:"endTime,omitempty"`
	UsageLimit   *int      `json:"usageLimit,omitempty"`
	PerUserLimit *int      `json:"perUserLimit,omitempty"`
	UsageCount   int       `json:"usageCount"`
	Active       bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NormalizeCode is the stored form of a code; lookups are case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("time of day %q must be HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func (p Promotion) Validate() error {
	switch {
	case p.Code == "":
		return apperr.Invalid("code", "is required")
	case p.Name == "":
		return apperr.Invalid("name", "is required")
	case !slices.Contains([]Scope{ScopeProduct, ScopeCategory, ScopeCustomer, ScopeTimeBased, ScopeUniversal}, p.Scope):
		return apperr.Invalid("scope", "unknown scope %q", p.Scope)
	case p.DiscountType != Percentage && p.DiscountType != FixedAmount:
		return apperr.Invalid("discountType", "unknown discount type %q", p.DiscountType)
	case !p.Value.IsPositive():
		return apperr.Invalid("value", "must be positive")
	case p.DiscountType == Percentage && p.Value.GreaterThan(decimal.NewFromInt(100)):
		return apperr.Invalid("value", "percentage must not exceed 100")
	case p.MinOrderAmount < 0:
		return apperr.Invalid("minOrderAmount", "must not be negative")
	case p.MaxDiscountAmount != nil && *p.MaxDiscountAmount < 0:
		return apperr.Invalid("maxDiscountAmount", "must not be negative")
	case p.EndDate.Before(p.StartDate):
		return apperr.Invalid("endDate", "is before startDate")
	case (p.StartTime == "") != (p.EndTime == ""):
		return apperr.Invalid("startTime", "startTime and endTime go together")
	case p.UsageLimit != nil && *p.UsageLimit < 0:
		return apperr.Invalid("usageLimit", "must not be negative")
	case p.PerUserLimit != nil && *p.PerUserLimit < 0:
		return apperr.Invalid("perUserLimit", "must not be negative")
	}
	if p.StartTime != "" {
		if _, err := parseClock(p.StartTime); err != nil {
			return apperr.Invalid("startTime", "%s", err.Error())
		}
		if _, err := parseClock(p.EndTime); err != nil {
			return apperr.Invalid("endTime", "%s", err.Error())
		}
	}
	return nil
}

// WithinHours reports whether the wall-clock time of at falls inside the
// daily window.
func (p Promotion) WithinHours(at time.Time) bool {
	if p.StartTime == "" {
		return true
	}
	start, err1 := parseClock(p.StartTime)
	end, err2 := parseClock(p.EndTime)
	if err1 != nil || err2 != nil {
		return false
	}
	now := at.Hour()*60 + at.Minute()
	if start <= end {
		return now >= start && now <= end
	}
	return now >= start || now <= end
}

// Discount computes the discount on amount: PERCENTAGE is floored and capped
// at MaxDiscountAmount, FIXED_AMOUNT never exceeds the amount.
func (p Promotion) Discount(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	var d int64
	switch p.DiscountType {
	case Percentage:
		d = decimal.NewFromInt(amount).Mul(p.Value).Div(decimal.NewFromInt(100)).Floor().IntPart()
		if p.MaxDiscountAmount != nil && d > *p.MaxDiscountAmount {
			d = *p.MaxDiscountAmount
		}
	case FixedAmount:
		d = p.Value.Floor().IntPart()
	}
	return max(0, min(d, amount))
}

// Usage records one committed redemption.
type Usage struct {
	ID             int64     `json:"id"`
	PromotionID    string    `json:"promotionId"`
	CustomerID     string    `json:"customerId,omitempty"`
	OrderID        string    `json:"orderId"`
	DiscountAmount int64     `json:"discountAmount"`
	CreatedAt      time.Time `json:"createdAt"`
}

type OrderLine struct {
	ProductID  string
	CategoryID string
}

// OrderContext is what eligibility is judged against.
type OrderContext struct {
	Amount          int64
	Lines           []OrderLine
	CustomerID      string
	MembershipLevel string
	At              time.Time
}

type Result struct {
	Promotion      Promotion `json:"promotion"`
	DiscountAmount int64     `json:"discountAmount"`
	FinalAmount    int64     `json:"finalAmount"`
}

type Stats struct {
	PromotionID       string `json:"promotionId"`
	Code              string `json:"code"`
	UsageCount        int    `json:"usageCount"`
	Remaining         *int   `json:"remaining,omitempty"`
	DistinctCustomers int    `json:"distinctCustomers"`
	TotalDiscount     int64  `json:"totalDiscount"`
}
