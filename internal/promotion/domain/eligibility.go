package domain

import (
	"slices"
	"time"

	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

// CheckWindow covers step one: active flag, date range and daily hours.
// at must already be in the business timezone.
func (p Promotion) CheckWindow(at time.Time) error {
	switch {
	case !p.Active:
		return p.ineligible(apperr.ReasonInactive)
	case at.Before(p.StartDate):
		return p.ineligible(apperr.ReasonNotStarted)
	case at.After(p.EndDate):
		return p.ineligible(apperr.ReasonExpired)
	case !p.WithinHours(at):
		return p.ineligible(apperr.ReasonOutsideHours)
	}
	return nil
}

func (p Promotion) CheckMinOrder(amount int64) error {
	if amount < p.MinOrderAmount {
		return p.ineligible(apperr.ReasonMinOrderNotMet)
	}
	return nil
}

func (p Promotion) CheckScope(oc OrderContext) error {
	ok := true
	switch p.Scope {
	case ScopeProduct:
		ok = slices.ContainsFunc(oc.Lines, func(l OrderLine) bool { return slices.Contains(p.ProductIDs, l.ProductID) })
	case ScopeCategory:
		ok = slices.ContainsFunc(oc.Lines, func(l OrderLine) bool {
			return l.CategoryID != "" && slices.Contains(p.CategoryIDs, l.CategoryID)
		})
	case ScopeCustomer:
		ok = oc.MembershipLevel != "" && slices.Contains(p.MembershipLevels, oc.MembershipLevel)
	}
	if !ok {
		return p.ineligible(apperr.ReasonScopeMismatch)
	}
	return nil
}

func (p Promotion) CheckUsageLimit() error {
	if p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit {
		return p.ineligible(apperr.ReasonUsageLimitReached)
	}
	return nil
}

func (p Promotion) CheckPerUserLimit(customerUses int) error {
	if p.PerUserLimit != nil && customerUses >= *p.PerUserLimit {
		return p.ineligible(apperr.ReasonPerUserLimitReached)
	}
	return nil
}

func (p Promotion) ineligible(r apperr.IneligibleReason) error {
	return &apperr.PromotionIneligibleError{Code: p.Code, Reason: r}
}
