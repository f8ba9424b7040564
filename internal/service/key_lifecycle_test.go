package service

import (
	"errors"
	"testing"
	"time"

	"github.com/adreward-next/internal/constants"
	"github.com/adreward-next/internal/models"

	"github.com/shopspring/decimal"
)

func newLifecycleKey(limit int64) *models.ActivationKey {
	return &models.ActivationKey{
		Code:            "KEY-LIFECYCLE",
		Price:           models.NewMoneyFromInt(2000),
		WithdrawalLimit: models.NewMoneyFromInt(limit),
		State:           constants.KeyStateUnassigned,
	}
}

func TestKeyLifecycleFullCycle(t *testing.T) {
	now := time.Now()
	key := newLifecycleKey(1000)
	if keyPhase(key) != constants.KeyStateUnassigned {
		t.Fatalf("expected unassigned, got %s", keyPhase(key))
	}
	if err := recordKeyWithdrawal(key, decimal.NewFromInt(10), now); !errors.Is(err, ErrKeyWithdrawNotAllowed) {
		t.Fatalf("expected withdraw not allowed before activation, got %v", err)
	}

	if err := activateKey(key, 7, now); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if key.State != constants.KeyStateActive || key.OwnerUserID == nil || *key.OwnerUserID != 7 {
		t.Fatalf("unexpected key after activation: %+v", key)
	}
	if err := activateKey(key, 8, now); !errors.Is(err, ErrKeyNotAvailable) {
		t.Fatalf("expected second activation to fail, got %v", err)
	}
	if err := renewKey(key, now); !errors.Is(err, ErrKeyRenewalNotRequired) {
		t.Fatalf("expected renewal refused while active, got %v", err)
	}

	if err := recordKeyWithdrawal(key, decimal.NewFromInt(600), now); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if !keyRemainingAllowance(key).Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected remaining 400, got %s", keyRemainingAllowance(key).String())
	}
	if err := recordKeyWithdrawal(key, decimal.NewFromInt(401), now); !errors.Is(err, ErrKeyWithdrawLimitExceeded) {
		t.Fatalf("expected limit exceeded, got %v", err)
	}
	if err := recordKeyWithdrawal(key, decimal.NewFromInt(400), now); err != nil {
		t.Fatalf("withdraw remaining failed: %v", err)
	}
	if key.State != constants.KeyStateExhausted || !keyNeedsRenewal(key) {
		t.Fatalf("expected exhausted key, got %s", key.State)
	}

	if err := renewKey(key, now); err != nil {
		t.Fatalf("renew failed: %v", err)
	}
	if key.State != constants.KeyStateActive || key.RenewalCount != 1 || !key.TotalWithdrawn.Decimal.IsZero() || key.LastRenewedAt == nil {
		t.Fatalf("unexpected key after renewal: %+v", key)
	}
}

func TestKeyLifecyclePause(t *testing.T) {
	now := time.Now()
	key := newLifecycleKey(1000)
	if err := pauseKey(key, now); !errors.Is(err, ErrKeyNotAvailable) {
		t.Fatalf("expected unassigned pause to fail, got %v", err)
	}
	if err := activateKey(key, 3, now); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if err := pauseKey(key, now); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if key.State != constants.KeyStatePaused || !keyNeedsRenewal(key) {
		t.Fatalf("expected paused key, got %s", key.State)
	}
	if err := pauseKey(key, now); !errors.Is(err, ErrKeyAlreadyPaused) {
		t.Fatalf("expected already paused, got %v", err)
	}
	if err := recordKeyWithdrawal(key, decimal.NewFromInt(1), now); !errors.Is(err, ErrKeyWithdrawNotAllowed) {
		t.Fatalf("expected withdraw refused while paused, got %v", err)
	}
	if err := renewKey(key, now); err != nil {
		t.Fatalf("renew paused key failed: %v", err)
	}
	if key.IsPaused || key.State != constants.KeyStateActive {
		t.Fatalf("expected renewal to clear pause, got %+v", key)
	}
}

func TestRestoreKeyWithdrawal(t *testing.T) {
	now := time.Now()
	key := newLifecycleKey(100)
	if err := activateKey(key, 3, now); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if err := recordKeyWithdrawal(key, decimal.NewFromInt(100), now); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	restoreKeyWithdrawal(key, decimal.NewFromInt(40), now)
	if key.State != constants.KeyStateActive || !key.TotalWithdrawn.Decimal.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("unexpected key after restore: %+v", key)
	}
	restoreKeyWithdrawal(key, decimal.NewFromInt(500), now)
	if !key.TotalWithdrawn.Decimal.IsZero() {
		t.Fatalf("expected restore to clamp at zero, got %s", key.TotalWithdrawn.String())
	}
}

func TestRecordKeyWithdrawalRejectsNonPositive(t *testing.T) {
	key := newLifecycleKey(100)
	if err := activateKey(key, 1, time.Now()); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if err := recordKeyWithdrawal(key, decimal.Zero, time.Now()); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}
