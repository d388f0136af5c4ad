package domain

import (
	"slices"
	"time"
)

type TxType string

const (
	TxEarn       TxType = "earn"
	TxRedeem     TxType = "redeem"
	TxExpired    TxType = "expired"
	TxAdjustment TxType = "adjustment"
)

type Customer struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Phone           string `json:"phone,omitempty"`
	LoyaltyPoints   int64  `json:"loyaltyPoints"`
	MembershipLevel string `json:"membershipLevel"`
	// MembershipLocked pins MembershipLevel against recalculation.
	MembershipLocked bool      `json:"membershipLocked"`
	TotalSpent       int64     `json:"totalSpent"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Transaction is one entry of the append-only points ledger.
type Transaction struct {
	ID         int64     `json:"id"`
	CustomerID string    `json:"customerId"`
	Type       TxType    `json:"type"`
	Points     int64     `json:"points"`
	Reason     string    `json:"reason"`
	OrderID    string    `json:"orderId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Tier struct {
	Level     string
	MinPoints int64
}

type Rules struct {
	PointsPerUnit int64
	PointValue    int64
	Tiers         []Tier
}

// TierFor walks the thresholds from the highest down and returns the first
// one points satisfies, or the lowest tier.
func (r Rules) TierFor(points int64) string {
	tiers := slices.Clone(r.Tiers)
	slices.SortStableFunc(tiers, func(a, b Tier) int {
		switch {
		case a.MinPoints > b.MinPoints:
			return -1
		case a.MinPoints < b.MinPoints:
			return 1
		}
		return 0
	})
	for _, t := range tiers {
		if points >= t.MinPoints {
			return t.Level
		}
	}
	if len(tiers) == 0 {
		return ""
	}
	return tiers[len(tiers)-1].Level
}

func (r Rules) KnownTier(level string) bool {
	return slices.ContainsFunc(r.Tiers, func(t Tier) bool { return t.Level == level })
}

// PointsFor is floor(net / PointsPerUnit).
func (r Rules) PointsFor(net int64) int64 {
	if net <= 0 || r.PointsPerUnit <= 0 {
		return 0
	}
	return net / r.PointsPerUnit
}

type Reconciliation struct {
	CustomerID string `json:"customerId"`
	Balance    int64  `json:"balance"`
	LedgerSum  int64  `json:"ledgerSum"`
	Consistent bool   `json:"consistent"`
}
