package cache

import (
	"context"
	"testing"
	"time"

	"github.com/adreward-next/internal/config"
	"github.com/adreward-next/internal/models"
)

func TestTierStoreDisabledIsMiss(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false}); err != nil {
		t.Fatalf("init redis failed: %v", err)
	}
	tierStore := NewTierStore()
	ctx := context.Background()

	if err := tierStore.SetActiveTiers(ctx, 0, []models.CommissionTier{{Name: "Standard"}}, time.Minute); err != nil {
		t.Fatalf("set should be a no-op when disabled: %v", err)
	}
	tiers, hit, err := tierStore.GetActiveTiers(ctx, 0)
	if err != nil || hit || tiers != nil {
		t.Fatalf("expected miss, got hit=%v tiers=%v err=%v", hit, tiers, err)
	}
	if err := tierStore.InvalidateActiveTiers(ctx); err != nil {
		t.Fatalf("invalidate should be a no-op when disabled: %v", err)
	}
	if version, err := tierStore.ActiveTiersVersion(ctx); err != nil || version != 0 {
		t.Fatalf("disabled cache version want 0 got %d err=%v", version, err)
	}
}

func TestActiveTiersSnapshotKey(t *testing.T) {
	if got := activeTiersSnapshotKey(0); got != "commission:tiers:active:v0" {
		t.Fatalf("unexpected snapshot key: %s", got)
	}
	if activeTiersSnapshotKey(3) == activeTiersSnapshotKey(4) {
		t.Fatalf("snapshot keys must differ per version")
	}
}

func TestKeyPrefix(t *testing.T) {
	install(nil, "")
	if got := Key(" commission:tiers:active "); got != "adr:commission:tiers:active" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := Key(); got != "adr" {
		t.Fatalf("unexpected empty key: %s", got)
	}

	install(nil, "tenant")
	t.Cleanup(func() { install(nil, "") })
	if got := Key("rate", "", ":login:"); got != "tenant:rate:login" {
		t.Fatalf("unexpected joined key: %s", got)
	}
}

func TestInitRedisUnreachableDegrades(t *testing.T) {
	err := InitRedis(&config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1, Prefix: "adr"})
	if err == nil {
		t.Fatalf("expected ping failure for closed port")
	}
	if Enabled() || Client() != nil {
		t.Fatalf("unreachable redis must leave cache disabled")
	}
	if err := Ping(context.Background()); err != nil {
		t.Fatalf("ping on disabled cache must be nil, got %v", err)
	}
	if err := Close(); err != nil {
		t.Fatalf("close on disabled cache must be nil, got %v", err)
	}
}
