package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyJSONRoundsToTwoPlaces(t *testing.T) {
	m := NewMoneyFromDecimal(decimal.RequireFromString("12.345"))
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(raw) != `"12.35"` {
		t.Fatalf("unexpected json: %s", raw)
	}

	var parsed Money
	if err := json.Unmarshal([]byte(`500`), &parsed); err != nil {
		t.Fatalf("unmarshal number failed: %v", err)
	}
	if !parsed.Decimal.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("unexpected parsed value: %s", parsed.String())
	}
}

func TestParseMoney(t *testing.T) {
	m, err := ParseMoney("2000")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if m.String() != "2000.00" || !m.IsPositive() || m.IsNegative() {
		t.Fatalf("unexpected money: %s", m.String())
	}
	if _, err := ParseMoney("abc"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestCommissionTierRateForLevel(t *testing.T) {
	tier := &CommissionTier{Name: "Standard"}
	tier.SetRates([]Money{
		NewMoneyFromInt(500), NewMoneyFromInt(300), NewMoneyFromInt(200),
		NewMoneyFromInt(100), NewMoneyFromInt(50), NewMoneyFromInt(50),
	})
	expected := []int64{500, 300, 200, 100, 50, 50}
	for i, want := range expected {
		got := tier.RateForLevel(i + 1)
		if !got.Decimal.Equal(decimal.NewFromInt(want)) {
			t.Fatalf("level %d: expected %d, got %s", i+1, want, got.String())
		}
	}
	if !tier.RateForLevel(0).Decimal.IsZero() || !tier.RateForLevel(7).Decimal.IsZero() {
		t.Fatalf("out of range levels must be zero")
	}

	tier.MinPrice = NewMoneyFromInt(0)
	tier.MaxPrice = NewMoneyFromInt(5000)
	if !tier.Contains(NewMoneyFromInt(5000)) || !tier.Contains(NewMoneyFromInt(0)) {
		t.Fatalf("bounds must be inclusive")
	}
	if tier.Contains(NewMoneyFromInt(5001)) {
		t.Fatalf("price above max must not match")
	}
}
