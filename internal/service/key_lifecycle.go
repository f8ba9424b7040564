package service

import (
	"time"

	"github.com/adreward-next/internal/constants"
	"github.com/adreward-next/internal/models"

	"github.com/shopspring/decimal"
)

// keyPhase 由字段推导激活码状态，State 列只是它的持久化快照
func keyPhase(key *models.ActivationKey) string {
	if key == nil || key.OwnerUserID == nil {
		return constants.KeyStateUnassigned
	}
	if key.IsPaused {
		return constants.KeyStatePaused
	}
	if !key.TotalWithdrawn.Decimal.LessThan(key.WithdrawalLimit.Decimal) {
		return constants.KeyStateExhausted
	}
	return constants.KeyStateActive
}

// keyNeedsRenewal 额度用尽或被暂停时需要续费
func keyNeedsRenewal(key *models.ActivationKey) bool {
	switch keyPhase(key) {
	case constants.KeyStateExhausted, constants.KeyStatePaused:
		return true
	default:
		return false
	}
}

// keyRemainingAllowance 剩余可提现额度，不小于 0
func keyRemainingAllowance(key *models.ActivationKey) decimal.Decimal {
	if key == nil {
		return decimal.Zero
	}
	remaining := key.WithdrawalLimit.Decimal.Sub(key.TotalWithdrawn.Decimal)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining.Round(2)
}

func syncKeyState(key *models.ActivationKey, now time.Time) {
	key.State = keyPhase(key)
	key.UpdatedAt = now
}

// activateKey 购买或分配：unassigned -> active
func activateKey(key *models.ActivationKey, ownerID uint, now time.Time) error {
	if key == nil {
		return ErrKeyNotFound
	}
	if keyPhase(key) != constants.KeyStateUnassigned || key.State != constants.KeyStateUnassigned {
		return ErrKeyNotAvailable
	}
	owner := ownerID
	key.OwnerUserID = &owner
	key.TotalWithdrawn = models.NewMoneyFromDecimal(decimal.Zero)
	key.IsPaused = false
	key.AssignedAt = &now
	syncKeyState(key, now)
	return nil
}

// recordKeyWithdrawal 消耗提现额度，额度用尽时转为 exhausted
func recordKeyWithdrawal(key *models.ActivationKey, amount decimal.Decimal, now time.Time) error {
	if key == nil {
		return ErrKeyNotFound
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if keyPhase(key) != constants.KeyStateActive {
		return ErrKeyWithdrawNotAllowed
	}
	if amount.GreaterThan(keyRemainingAllowance(key)) {
		return ErrKeyWithdrawLimitExceeded
	}
	key.TotalWithdrawn = models.NewMoneyFromDecimal(key.TotalWithdrawn.Decimal.Add(amount))
	syncKeyState(key, now)
	return nil
}

// restoreKeyWithdrawal 提现驳回后归还额度，暂停状态保持不变
func restoreKeyWithdrawal(key *models.ActivationKey, amount decimal.Decimal, now time.Time) {
	if key == nil || !amount.IsPositive() {
		return
	}
	restored := key.TotalWithdrawn.Decimal.Sub(amount)
	if restored.IsNegative() {
		restored = decimal.Zero
	}
	key.TotalWithdrawn = models.NewMoneyFromDecimal(restored)
	syncKeyState(key, now)
}

// renewKey 续费：exhausted/paused -> active
func renewKey(key *models.ActivationKey, now time.Time) error {
	if key == nil {
		return ErrKeyNotFound
	}
	if !keyNeedsRenewal(key) {
		return ErrKeyRenewalNotRequired
	}
	key.TotalWithdrawn = models.NewMoneyFromDecimal(decimal.Zero)
	key.IsPaused = false
	key.RenewalCount++
	key.LastRenewedAt = &now
	syncKeyState(key, now)
	return nil
}

// pauseKey 运营手动暂停
func pauseKey(key *models.ActivationKey, now time.Time) error {
	if key == nil {
		return ErrKeyNotFound
	}
	switch keyPhase(key) {
	case constants.KeyStateUnassigned:
		return ErrKeyNotAvailable
	case constants.KeyStatePaused:
		return ErrKeyAlreadyPaused
	}
	key.IsPaused = true
	syncKeyState(key, now)
	return nil
}
