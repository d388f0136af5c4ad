package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	rules := Rules{Tiers: []Tier{{"GOLD", 500}, {"BRONZE", 0}, {"SILVER", 100}}}

	tests := []struct {
		points int64
		want   string
	}{
		{0, "BRONZE"},
		{99, "BRONZE"},
		{100, "SILVER"},
		{150, "SILVER"},
		{499, "SILVER"},
		{550, "GOLD"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rules.TierFor(tt.points), "points %d", tt.points)
	}
}

func TestTierForFallsBackToLowest(t *testing.T) {
	rules := Rules{Tiers: []Tier{{"SILVER", 100}, {"GOLD", 500}}}
	assert.Equal(t, "SILVER", rules.TierFor(10))
	assert.Equal(t, "", Rules{}.TierFor(10))
}

func TestPointsFor(t *testing.T) {
	rules := Rules{PointsPerUnit: 10000}
	assert.Equal(t, int64(0), rules.PointsFor(9999))
	assert.Equal(t, int64(1), rules.PointsFor(10000))
	assert.Equal(t, int64(45), rules.PointsFor(459999))
	assert.Equal(t, int64(0), rules.PointsFor(-5))
}
