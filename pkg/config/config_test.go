package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadRulesMissingFileUsesDefaults(t *testing.T) {
	rules, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}

func TestLoadRulesOverlaysFile(t *testing.T) {
	path := writeRules(t, `
timezone: Asia/Jakarta
deduction_point: confirmation
creating_ttl: 10m
loyalty:
  points_per_unit: 1000
  point_value: 50
  tiers:
    - level: GOLD
      min_points: 500
    - level: BRONZE
      min_points: 0
`)
	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, "Asia/Jakarta", rules.Timezone)
	assert.Equal(t, DeductAtConfirmation, rules.DeductionPoint)
	assert.Equal(t, 10*time.Minute, rules.CreatingTTL)
	assert.Equal(t, int64(1000), rules.Loyalty.PointsPerUnit)
	assert.Equal(t, 1024, rules.BroadcastBuffer)

	tiers := rules.Loyalty.SortedTiers()
	require.Len(t, tiers, 2)
	assert.Equal(t, "BRONZE", tiers[0].Level)
	assert.Equal(t, "GOLD", rules.Loyalty.Tiers[0].Level)
}

func TestRulesValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Rules)
	}{
		{"bad timezone", func(r *Rules) { r.Timezone = "Mars/Olympus" }},
		{"bad deduction point", func(r *Rules) { r.DeductionPoint = "creation" }},
		{"zero point value", func(r *Rules) { r.Loyalty.PointValue = 0 }},
		{"no tiers", func(r *Rules) { r.Loyalty.Tiers = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DefaultRules()
			tt.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
	assert.NoError(t, DefaultRules().Validate())
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("RULES_FILE", filepath.Join(t.TempDir(), "none.yaml"))
	_, err := Load("test")
	assert.Error(t, err)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", DriverMemory)
	t.Setenv("KAFKA_ADDR", "k1:9092,k2:9092")
	t.Setenv("CREATING_TTL", "2m")
	t.Setenv("RULES_FILE", filepath.Join(t.TempDir(), "none.yaml"))

	cfg, err := Load("pos-service")
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Minute, cfg.Rules.CreatingTTL)
	assert.Equal(t, "pos-service", cfg.ConsumerGroup)
}

func TestLoadRedisDefaultsPerDriver(t *testing.T) {
	t.Setenv("RULES_FILE", filepath.Join(t.TempDir(), "none.yaml"))
	t.Setenv("REDIS_ADDR", "")

	t.Setenv("STORE_DRIVER", DriverPostgres)
	cfg, err := Load("pos-service")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)

	t.Setenv("STORE_DRIVER", DriverMemory)
	cfg, err = Load("pos-service")
	require.NoError(t, err)
	assert.Empty(t, cfg.RedisAddr)
}
