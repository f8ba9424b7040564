package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestCommissionConfigNormalize(t *testing.T) {
	cases := []struct {
		name  string
		input CommissionConfig
		depth int
	}{
		{name: "zero falls back", input: CommissionConfig{}, depth: MaxReferralDepth},
		{name: "too deep is clamped", input: CommissionConfig{MaxDepth: 12}, depth: MaxReferralDepth},
		{name: "shallower kept", input: CommissionConfig{MaxDepth: 3}, depth: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.input.Normalize()
			if got.MaxDepth != tc.depth {
				t.Fatalf("expected depth %d, got %d", tc.depth, got.MaxDepth)
			}
			if got.ReconcileBatchSize <= 0 || got.ReconcileMaxAttempts <= 0 || got.ReconcileIntervalSeconds <= 0 {
				t.Fatalf("reconcile defaults not applied: %+v", got)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal defaults failed: %v", err)
	}
	if cfg.Commission.MaxDepth != MaxReferralDepth {
		t.Fatalf("unexpected default depth: %d", cfg.Commission.MaxDepth)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("unexpected default driver: %s", cfg.Database.Driver)
	}
	if cfg.Wallet.Currency == "" {
		t.Fatalf("wallet currency default missing")
	}
}
