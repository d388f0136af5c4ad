package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/restaurant-pos/internal/loyalty/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/config"
)

// RulesFromConfig maps the business-rules file onto loyalty rules.
func RulesFromConfig(c config.LoyaltyRules) domain.Rules {
	r := domain.Rules{PointsPerUnit: c.PointsPerUnit, PointValue: c.PointValue}
	for _, t := range c.SortedTiers() {
		r.Tiers = append(r.Tiers, domain.Tier{Level: t.Level, MinPoints: t.MinPoints})
	}
	return r
}

// Accountant owns customer point balances. Every balance change goes
// through the ledger so LoyaltyPoints always equals the sum of entries.
type Accountant struct {
	log   *slog.Logger
	tx    Transactor
	repo  Repository
	rules domain.Rules
	now   func() time.Time
}

func NewAccountant(log *slog.Logger, tx Transactor, repo Repository, rules domain.Rules) *Accountant {
	return &Accountant{log: log, tx: tx, repo: repo, rules: rules, now: time.Now}
}

func (a *Accountant) Rules() domain.Rules { return a.rules }

// post appends one ledger entry and moves the cached balance with it. The
// caller holds the customer lock.
func (a *Accountant) post(ctx context.Context, c *domain.Customer, typ domain.TxType, points int64, reason, orderID string) error {
	if c.LoyaltyPoints+points < 0 {
		return &apperr.RedemptionError{CustomerID: c.ID, Requested: -points, Balance: c.LoyaltyPoints, Reason: "insufficient points"}
	}
	now := a.now().UTC()
	if _, err := a.repo.AppendTransaction(ctx, domain.Transaction{
		CustomerID: c.ID,
		Type:       typ,
		Points:     points,
		Reason:     reason,
		OrderID:    orderID,
		CreatedAt:  now,
	}); err != nil {
		return err
	}
	c.LoyaltyPoints += points
	c.UpdatedAt = now
	return nil
}

func (a *Accountant) recalc(c *domain.Customer) bool {
	if c.MembershipLocked {
		return false
	}
	level := a.rules.TierFor(c.LoyaltyPoints)
	if level == c.MembershipLevel {
		return false
	}
	a.log.Info("membership changed", "customer_id", c.ID, "from", c.MembershipLevel, "to", level)
	c.MembershipLevel = level
	return true
}

// Earn grants floor(netAmount / PointsPerUnit) points for a completed order
// and adds netAmount to TotalSpent.
func (a *Accountant) Earn(ctx context.Context, customerID string, netAmount int64, orderID string) (domain.Customer, error) {
	var out domain.Customer
	err := a.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := a.repo.LockForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		if points := a.rules.PointsFor(netAmount); points > 0 {
			if err := a.post(ctx, &c, domain.TxEarn, points, "order "+orderID+" completed", orderID); err != nil {
				return err
			}
		}
		c.TotalSpent += max(0, netAmount)
		c.UpdatedAt = a.now().UTC()
		a.recalc(&c)
		if err := a.repo.Save(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return domain.Customer{}, fmt.Errorf("earn points for %s: %w", customerID, err)
	}
	return out, nil
}

// Redeem spends points against an order and returns the discount they buy.
func (a *Accountant) Redeem(ctx context.Context, customerID string, points, orderAmount int64, orderID string) (int64, error) {
	if points <= 0 {
		return 0, apperr.Invalid("pointsToRedeem", "must be positive")
	}
	discount := points * a.rules.PointValue
	err := a.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := a.repo.LockForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		if points > c.LoyaltyPoints {
			return &apperr.RedemptionError{CustomerID: c.ID, Requested: points, Balance: c.LoyaltyPoints, Reason: "insufficient points"}
		}
		if discount > orderAmount {
			return &apperr.RedemptionError{CustomerID: c.ID, Requested: points, Balance: c.LoyaltyPoints, Reason: "points value exceeds order amount"}
		}
		if err := a.post(ctx, &c, domain.TxRedeem, -points, "redeemed on order "+orderID, orderID); err != nil {
			return err
		}
		a.recalc(&c)
		return a.repo.Save(ctx, c)
	})
	if err != nil {
		return 0, fmt.Errorf("redeem points for %s: %w", customerID, err)
	}
	return discount, nil
}

// Refund returns points redeemed on an order that was cancelled.
func (a *Accountant) Refund(ctx context.Context, customerID string, points int64, orderID string) (domain.Customer, error) {
	var out domain.Customer
	err := a.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := a.repo.LockForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		if points > 0 {
			if err := a.post(ctx, &c, domain.TxAdjustment, points, "refund for cancelled order "+orderID, orderID); err != nil {
				return err
			}
			a.recalc(&c)
			if err := a.repo.Save(ctx, c); err != nil {
				return err
			}
		}
		out = c
		return nil
	})
	if err != nil {
		return domain.Customer{}, fmt.Errorf("refund points for %s: %w", customerID, err)
	}
	return out, nil
}

// RecalculateMembership re-derives the tier from the current balance. Safe
// to repeat; a locked override is left alone.
func (a *Accountant) RecalculateMembership(ctx context.Context, customerID string) (domain.Customer, error) {
	var out domain.Customer
	err := a.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := a.repo.LockForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		if a.recalc(&c) {
			c.UpdatedAt = a.now().UTC()
			if err := a.repo.Save(ctx, c); err != nil {
				return err
			}
		}
		out = c
		return nil
	})
	return out, err
}

// RecalculateAll repairs every customer's tier, one transaction each, and
// reports how many changed.
func (a *Accountant) RecalculateAll(ctx context.Context) (int, error) {
	ids, err := a.repo.ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		before, err := a.repo.Get(ctx, id)
		if err != nil {
			return changed, err
		}
		after, err := a.RecalculateMembership(ctx, id)
		if err != nil {
			return changed, fmt.Errorf("recalculate %s: %w", id, err)
		}
		if before.MembershipLevel != after.MembershipLevel {
			changed++
		}
	}
	return changed, nil
}

// SetMembershipOverride pins a tier (locked) or releases the pin and
// recalculates.
func (a *Accountant) SetMembershipOverride(ctx context.Context, customerID, level string, locked bool) (domain.Customer, error) {
	if locked && !a.rules.KnownTier(level) {
		return domain.Customer{}, apperr.Invalid("membershipLevel", "unknown tier %q", level)
	}
	var out domain.Customer
	err := a.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := a.repo.LockForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		c.MembershipLocked = locked
		if locked {
			c.MembershipLevel = level
		} else {
			a.recalc(&c)
		}
		c.UpdatedAt = a.now().UTC()
		if err := a.repo.Save(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

// Reconcile compares the cached balance with the ledger sum.
func (a *Accountant) Reconcile(ctx context.Context, customerID string) (domain.Reconciliation, error) {
	var r domain.Reconciliation
	err := a.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := a.repo.Get(ctx, customerID)
		if err != nil {
			return err
		}
		sum, err := a.repo.SumPoints(ctx, customerID)
		if err != nil {
			return err
		}
		r = domain.Reconciliation{CustomerID: c.ID, Balance: c.LoyaltyPoints, LedgerSum: sum, Consistent: sum == c.LoyaltyPoints}
		return nil
	})
	return r, err
}

// CreateCustomer registers a customer. Opening points, if any, are posted
// as an adjustment so the ledger stays authoritative.
func (a *Accountant) CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	if c.Name == "" {
		return domain.Customer{}, apperr.Invalid("name", "is required")
	}
	if c.LoyaltyPoints < 0 {
		return domain.Customer{}, apperr.Invalid("loyaltyPoints", "must not be negative")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	opening := c.LoyaltyPoints
	now := a.now().UTC()
	c.LoyaltyPoints, c.TotalSpent = 0, 0
	c.MembershipLocked = false
	c.MembershipLevel = a.rules.TierFor(0)
	c.CreatedAt, c.UpdatedAt = now, now

	err := a.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := a.repo.Create(ctx, c); err != nil {
			return err
		}
		if opening == 0 {
			return nil
		}
		if err := a.post(ctx, &c, domain.TxAdjustment, opening, "opening balance", ""); err != nil {
			return err
		}
		a.recalc(&c)
		return a.repo.Save(ctx, c)
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return c, nil
}

func (a *Accountant) Customer(ctx context.Context, id string) (domain.Customer, error) {
	return a.repo.Get(ctx, id)
}

func (a *Accountant) Transactions(ctx context.Context, customerID string) ([]domain.Transaction, error) {
	if _, err := a.repo.Get(ctx, customerID); err != nil {
		return nil, err
	}
	return a.repo.Transactions(ctx, customerID)
}
