package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adreward-next/internal/models"

	"gorm.io/gorm"
)

type memoryTierCache struct {
	version     int64
	snapshots   map[int64][]models.CommissionTier
	sets        int
	invalidated int
}

func (c *memoryTierCache) ActiveTiersVersion(ctx context.Context) (int64, error) {
	return c.version, nil
}

func (c *memoryTierCache) GetActiveTiers(ctx context.Context, version int64) ([]models.CommissionTier, bool, error) {
	tiers, ok := c.snapshots[version]
	return tiers, ok, nil
}

func (c *memoryTierCache) SetActiveTiers(ctx context.Context, version int64, tiers []models.CommissionTier, ttl time.Duration) error {
	if c.snapshots == nil {
		c.snapshots = make(map[int64][]models.CommissionTier)
	}
	c.snapshots[version] = tiers
	c.sets++
	return nil
}

func (c *memoryTierCache) InvalidateActiveTiers(ctx context.Context) error {
	c.version++
	c.invalidated++
	return nil
}

// staleWriteTierCache 模拟解析器回源后、写回前发生了一次档位失效
type staleWriteTierCache struct {
	memoryTierCache
	onSet func()
}

func (c *staleWriteTierCache) SetActiveTiers(ctx context.Context, version int64, tiers []models.CommissionTier, ttl time.Duration) error {
	if c.onSet != nil {
		hook := c.onSet
		c.onSet = nil
		hook()
	}
	return c.memoryTierCache.SetActiveTiers(ctx, version, tiers, ttl)
}

func moneyList(values ...int64) []models.Money {
	out := make([]models.Money, 0, len(values))
	for _, v := range values {
		out = append(out, models.NewMoneyFromInt(v))
	}
	return out
}

func resolveInTx(t *testing.T, f *serviceFixture, resolver *TierResolver, price int64) *models.CommissionTier {
	t.Helper()
	var tier *models.CommissionTier
	if err := f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		tier, err = resolver.ResolveTier(tx, models.NewMoneyFromInt(price))
		return err
	}); err != nil {
		t.Fatalf("resolve tier failed: %v", err)
	}
	return tier
}

func TestTierResolverBoundaries(t *testing.T) {
	f := setupServiceFixture(t, "tier_resolver_bounds")
	f.createTier(t, "Basic", 0, 999, 10)
	f.createTier(t, "Standard", 1000, 5000, 500, 300, 200, 100, 50, 50)

	cases := []struct {
		price int64
		want  string
	}{
		{price: 0, want: "Basic"},
		{price: 999, want: "Basic"},
		{price: 1000, want: "Standard"},
		{price: 5000, want: "Standard"},
		{price: 5001, want: ""},
	}
	for _, tc := range cases {
		for i := 0; i < 2; i++ {
			tier := resolveInTx(t, f, f.resolver, tc.price)
			got := ""
			if tier != nil {
				got = tier.Name
			}
			if got != tc.want {
				t.Fatalf("price %d: expected %q, got %q", tc.price, tc.want, got)
			}
		}
	}
}

func TestTierResolverIgnoresInactiveTiers(t *testing.T) {
	f := setupServiceFixture(t, "tier_resolver_inactive")
	tier := f.createTier(t, "Legacy", 0, 5000, 1)
	if err := f.db.Model(tier).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate tier failed: %v", err)
	}
	if got := resolveInTx(t, f, f.resolver, 100); got != nil {
		t.Fatalf("expected inactive tier to be ignored, got %s", got.Name)
	}
}

func TestTierResolverUsesCache(t *testing.T) {
	f := setupServiceFixture(t, "tier_resolver_cache")
	f.createTier(t, "Standard", 0, 5000, 500)
	cache := &memoryTierCache{}
	resolver := NewTierResolver(f.tierRepo, cache, time.Minute)

	if tier := resolveInTx(t, f, resolver, 2000); tier == nil || tier.Name != "Standard" {
		t.Fatalf("expected Standard from repository")
	}
	if cache.sets != 1 {
		t.Fatalf("expected cache to be filled once, got %d", cache.sets)
	}
	if err := f.db.Exec("DELETE FROM commission_tiers").Error; err != nil {
		t.Fatalf("delete tiers failed: %v", err)
	}
	if tier := resolveInTx(t, f, resolver, 2000); tier == nil {
		t.Fatalf("expected cached tier to be served")
	}
	resolver.Invalidate(context.Background())
	if tier := resolveInTx(t, f, resolver, 2000); tier != nil {
		t.Fatalf("expected miss after invalidation")
	}
}

func TestTierResolverIgnoresSnapshotWrittenAcrossInvalidation(t *testing.T) {
	f := setupServiceFixture(t, "tier_resolver_stale_write")
	tier := f.createTier(t, "Standard", 0, 5000, 500)
	cache := &staleWriteTierCache{}
	resolver := NewTierResolver(f.tierRepo, cache, time.Minute)
	svc := NewTierService(f.tierRepo, resolver)

	// 回源读到启用档位后，管理员在写回缓存前停用了它
	cache.onSet = func() {
		if _, err := svc.SetTierActive(tier.ID, false); err != nil {
			t.Fatalf("disable tier failed: %v", err)
		}
	}
	price := models.NewMoneyFromInt(2000)
	if got, err := resolver.ResolveTier(f.db, price); err != nil || got == nil {
		t.Fatalf("first resolve reads the tier before it is disabled: tier=%v err=%v", got, err)
	}
	got, err := resolver.ResolveTier(f.db, price)
	if err != nil {
		t.Fatalf("resolve tier failed: %v", err)
	}
	if got != nil {
		t.Fatalf("disabled tier must not be served from a snapshot written before invalidation, got %s", got.Name)
	}
	if cache.version != 1 || cache.sets != 2 {
		t.Fatalf("unexpected cache state: version=%d sets=%d", cache.version, cache.sets)
	}
}

func TestTierServiceValidation(t *testing.T) {
	f := setupServiceFixture(t, "tier_service_validation")
	svc := NewTierService(f.tierRepo, f.resolver)
	if _, err := svc.CreateTier(TierInput{Name: "Standard", MinPrice: models.NewMoneyFromInt(0), MaxPrice: models.NewMoneyFromInt(5000), Rates: moneyList(500, 300), IsActive: true}); err != nil {
		t.Fatalf("create tier failed: %v", err)
	}

	cases := []struct {
		name  string
		input TierInput
		want  error
	}{
		{name: "empty name", input: TierInput{Name: " ", MaxPrice: models.NewMoneyFromInt(1)}, want: ErrTierNameRequired},
		{name: "min above max", input: TierInput{Name: "x", MinPrice: models.NewMoneyFromInt(10), MaxPrice: models.NewMoneyFromInt(5)}, want: ErrTierRangeInvalid},
		{name: "negative min", input: TierInput{Name: "x", MinPrice: models.NewMoneyFromInt(-1), MaxPrice: models.NewMoneyFromInt(5)}, want: ErrTierRangeInvalid},
		{name: "negative rate", input: TierInput{Name: "x", MinPrice: models.NewMoneyFromInt(6000), MaxPrice: models.NewMoneyFromInt(7000), Rates: moneyList(1, -1)}, want: ErrTierRateInvalid},
		{name: "too many rates", input: TierInput{Name: "x", MinPrice: models.NewMoneyFromInt(6000), MaxPrice: models.NewMoneyFromInt(7000), Rates: moneyList(1, 1, 1, 1, 1, 1, 1)}, want: ErrTierRateInvalid},
		{name: "overlap", input: TierInput{Name: "x", MinPrice: models.NewMoneyFromInt(5000), MaxPrice: models.NewMoneyFromInt(7000), IsActive: true}, want: ErrTierOverlap},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateTier(tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// 停用状态允许重叠，启用时才校验
	inactive, err := svc.CreateTier(TierInput{Name: "Draft", MinPrice: models.NewMoneyFromInt(4000), MaxPrice: models.NewMoneyFromInt(7000)})
	if err != nil {
		t.Fatalf("create inactive tier failed: %v", err)
	}
	if inactive.IsActive {
		t.Fatalf("expected inactive tier to stay inactive")
	}
	if _, err := svc.SetTierActive(inactive.ID, true); !errors.Is(err, ErrTierOverlap) {
		t.Fatalf("expected overlap on activation, got %v", err)
	}
	if _, err := svc.SetTierActive(999, true); !errors.Is(err, ErrTierNotFound) {
		t.Fatalf("expected tier not found, got %v", err)
	}
}

func TestTierServiceUpdateInvalidatesCache(t *testing.T) {
	f := setupServiceFixture(t, "tier_service_update")
	cache := &memoryTierCache{}
	resolver := NewTierResolver(f.tierRepo, cache, time.Minute)
	svc := NewTierService(f.tierRepo, resolver)

	tier, err := svc.CreateTier(TierInput{Name: "Standard", MinPrice: models.NewMoneyFromInt(0), MaxPrice: models.NewMoneyFromInt(5000), Rates: moneyList(500), IsActive: true})
	if err != nil {
		t.Fatalf("create tier failed: %v", err)
	}
	updated, err := svc.UpdateTier(tier.ID, TierInput{Name: "Standard", MinPrice: models.NewMoneyFromInt(0), MaxPrice: models.NewMoneyFromInt(6000), Rates: moneyList(600, 100), IsActive: true})
	if err != nil {
		t.Fatalf("update tier failed: %v", err)
	}
	if !updated.Level1Rate.Decimal.Equal(mustDecimal(600)) || !updated.Level3Rate.Decimal.IsZero() {
		t.Fatalf("unexpected rates after update: %+v", updated.Rates())
	}
	if cache.invalidated != 2 {
		t.Fatalf("expected 2 invalidations, got %d", cache.invalidated)
	}
}

func TestTierRangesOverlap(t *testing.T) {
	m := models.NewMoneyFromInt
	if !tierRangesOverlap(m(0), m(10), m(10), m(20)) {
		t.Fatalf("shared boundary must overlap")
	}
	if tierRangesOverlap(m(0), m(9), m(10), m(20)) {
		t.Fatalf("adjacent ranges must not overlap")
	}
}
