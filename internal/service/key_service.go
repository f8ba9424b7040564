package service

import (
	"strings"
	"time"

	"github.com/adreward-next/internal/constants"
	"github.com/adreward-next/internal/logger"
	"github.com/adreward-next/internal/metrics"
	"github.com/adreward-next/internal/models"
	"github.com/adreward-next/internal/queue"
	"github.com/adreward-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	keyBatchMaxCount        = 500
	defaultReconcileDelay   = 5 * time.Second
	withdrawRejectReasonMax = 255
)

// KeyService 激活码生命周期服务：购买、续费、分配、提现
type KeyService struct {
	keyRepo        repository.ActivationKeyRepository
	userRepo       repository.UserRepository
	walletRepo     repository.WalletRepository
	withdrawRepo   repository.WithdrawRepository
	walletSvc      *WalletService
	engine         *CommissionEngine
	queueClient    *queue.Client
	reconcileDelay time.Duration
}

// KeyActionResult 生命周期操作结果
type KeyActionResult struct {
	Key        *models.ActivationKey `json:"key"`
	Event      *models.KeyEvent      `json:"event"`
	Commission *CommissionOutcome    `json:"-"`
}

// KeyStatus 用户激活码状态投影
type KeyStatus struct {
	HasKey             bool         `json:"has_key"`
	Code               string       `json:"code,omitempty"`
	State              string       `json:"state,omitempty"`
	TotalWithdrawn     models.Money `json:"total_withdrawn"`
	WithdrawalLimit    models.Money `json:"withdrawal_limit"`
	RemainingAllowance models.Money `json:"remaining_allowance"`
	IsPaused           bool         `json:"is_paused"`
	NeedsRenewal       bool         `json:"needs_renewal"`
	RenewalPrice       models.Money `json:"renewal_price"`
	RenewalCount       int          `json:"renewal_count"`
	LastRenewedAt      *time.Time   `json:"last_renewed_at"`
}

// CreateKeysInput 批量创建激活码参数
type CreateKeysInput struct {
	Count            int
	Price            models.Money
	WithdrawalLimit  models.Money
	OriginatorUserID uint
	Prefix           string
}

// WithdrawInput 提现申请参数
type WithdrawInput struct {
	Amount  models.Money
	Channel string
	Account string
}

// NewKeyService 创建激活码服务，queueClient 可为空
func NewKeyService(
	keyRepo repository.ActivationKeyRepository,
	userRepo repository.UserRepository,
	walletRepo repository.WalletRepository,
	withdrawRepo repository.WithdrawRepository,
	walletSvc *WalletService,
	engine *CommissionEngine,
	queueClient *queue.Client,
) *KeyService {
	return &KeyService{
		keyRepo:        keyRepo,
		userRepo:       userRepo,
		walletRepo:     walletRepo,
		withdrawRepo:   withdrawRepo,
		walletSvc:      walletSvc,
		engine:         engine,
		queueClient:    queueClient,
		reconcileDelay: defaultReconcileDelay,
	}
}

// PurchaseKey 用户购买未分配的激活码：扣买家、入账出售方、激活、分发佣金
func (s *KeyService) PurchaseKey(buyerID uint, code string) (*KeyActionResult, error) {
	if buyerID == 0 {
		return nil, ErrInvalidUserID
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrKeyCodeRequired
	}
	var result *KeyActionResult
	err := s.keyRepo.Transaction(func(tx *gorm.DB) error {
		buyer, err := s.loadActiveUserForUpdate(tx, buyerID)
		if err != nil {
			return err
		}
		keyRepo := s.keyRepo.WithTx(tx)
		owned, err := keyRepo.GetByOwnerForUpdate(buyer.ID)
		if err != nil {
			return wrapPersistence(err)
		}
		if owned != nil {
			return ErrKeyAlreadyOwned
		}
		key, err := keyRepo.GetByCodeForUpdate(code)
		if err != nil {
			return wrapPersistence(err)
		}
		if key == nil {
			return ErrKeyNotFound
		}
		if keyPhase(key) != constants.KeyStateUnassigned {
			return ErrKeyNotAvailable
		}
		if key.OriginatorUserID == buyer.ID {
			return ErrKeySelfPurchase
		}

		now := time.Now()
		event, err := s.createEvent(tx, key, constants.KeyEventPurchase, buyer.ID, nil, key.Price, now)
		if err != nil {
			return err
		}
		plan, err := s.engine.Plan(tx, s.buildTrigger(event, buyer, key.Price))
		if err != nil {
			return err
		}
		if err := s.lockParties(tx, plan, buyer.ID, key.OriginatorUserID, referrerOf(buyer)); err != nil {
			return err
		}
		if err := s.transferPrice(tx, event, buyer.ID, key.OriginatorUserID, key.Price,
			constants.WalletTxnTypeKeyPurchase, constants.WalletTxnTypeKeySale); err != nil {
			return err
		}
		if err := activateKey(key, buyer.ID, now); err != nil {
			return err
		}
		if err := keyRepo.Update(key); err != nil {
			return wrapPersistence(err)
		}
		if err := s.markFirstActivation(tx, buyer, now); err != nil {
			return err
		}
		result = &KeyActionResult{Key: key, Event: event, Commission: s.engine.Execute(tx, plan)}
		return nil
	})
	if err != nil {
		return nil, wrapPersistence(err)
	}
	s.afterCommit(result)
	return result, nil
}

// RenewKey 续费已用尽或被暂停的激活码，佣金沿持有人的推荐链分发
func (s *KeyService) RenewKey(ownerID uint) (*KeyActionResult, error) {
	if ownerID == 0 {
		return nil, ErrInvalidUserID
	}
	var result *KeyActionResult
	err := s.keyRepo.Transaction(func(tx *gorm.DB) error {
		owner, err := s.loadActiveUserForUpdate(tx, ownerID)
		if err != nil {
			return err
		}
		keyRepo := s.keyRepo.WithTx(tx)
		key, err := keyRepo.GetByOwnerForUpdate(owner.ID)
		if err != nil {
			return wrapPersistence(err)
		}
		if key == nil {
			return ErrKeyNotFound
		}
		if !keyNeedsRenewal(key) {
			return ErrKeyRenewalNotRequired
		}

		now := time.Now()
		event, err := s.createEvent(tx, key, constants.KeyEventRenewal, owner.ID, nil, key.Price, now)
		if err != nil {
			return err
		}
		plan, err := s.engine.Plan(tx, s.buildTrigger(event, owner, key.Price))
		if err != nil {
			return err
		}
		if err := s.lockParties(tx, plan, owner.ID, key.OriginatorUserID); err != nil {
			return err
		}
		if err := s.transferPrice(tx, event, owner.ID, key.OriginatorUserID, key.Price,
			constants.WalletTxnTypeKeyRenewal, constants.WalletTxnTypeKeyRenewalSale); err != nil {
			return err
		}
		if err := renewKey(key, now); err != nil {
			return err
		}
		if err := keyRepo.Update(key); err != nil {
			return wrapPersistence(err)
		}
		result = &KeyActionResult{Key: key, Event: event, Commission: s.engine.Execute(tx, plan)}
		return nil
	})
	if err != nil {
		return nil, wrapPersistence(err)
	}
	s.afterCommit(result)
	return result, nil
}

// AssignKey 管理员直接分配激活码，不扣款但仍按价格分发佣金
func (s *KeyService) AssignKey(adminID, targetUserID uint, code string) (*KeyActionResult, error) {
	if targetUserID == 0 {
		return nil, ErrInvalidUserID
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrKeyCodeRequired
	}
	var result *KeyActionResult
	err := s.keyRepo.Transaction(func(tx *gorm.DB) error {
		target, err := s.loadActiveUserForUpdate(tx, targetUserID)
		if err != nil {
			return err
		}
		keyRepo := s.keyRepo.WithTx(tx)
		owned, err := keyRepo.GetByOwnerForUpdate(target.ID)
		if err != nil {
			return wrapPersistence(err)
		}
		if owned != nil {
			return ErrKeyAlreadyOwned
		}
		key, err := keyRepo.GetByCodeForUpdate(code)
		if err != nil {
			return wrapPersistence(err)
		}
		if key == nil {
			return ErrKeyNotFound
		}
		if keyPhase(key) != constants.KeyStateUnassigned {
			return ErrKeyNotAvailable
		}

		now := time.Now()
		var operator *uint
		if adminID != 0 {
			id := adminID
			operator = &id
		}
		event, err := s.createEvent(tx, key, constants.KeyEventAssignment, target.ID, operator, key.Price, now)
		if err != nil {
			return err
		}
		plan, err := s.engine.Plan(tx, s.buildTrigger(event, target, key.Price))
		if err != nil {
			return err
		}
		if err := s.lockParties(tx, plan, referrerOf(target)); err != nil {
			return err
		}
		if err := activateKey(key, target.ID, now); err != nil {
			return err
		}
		if err := keyRepo.Update(key); err != nil {
			return wrapPersistence(err)
		}
		if err := s.markFirstActivation(tx, target, now); err != nil {
			return err
		}
		result = &KeyActionResult{Key: key, Event: event, Commission: s.engine.Execute(tx, plan)}
		return nil
	})
	if err != nil {
		return nil, wrapPersistence(err)
	}
	s.afterCommit(result)
	return result, nil
}

// GetKeyStatus 返回用户当前激活码状态
func (s *KeyService) GetKeyStatus(userID uint) (*KeyStatus, error) {
	if userID == 0 {
		return nil, ErrInvalidUserID
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	key, err := s.keyRepo.GetByOwner(userID)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	return buildKeyStatus(key), nil
}

// WithdrawWithKey 消耗激活码额度提现：扣钱包并生成待审核申请
func (s *KeyService) WithdrawWithKey(userID uint, input WithdrawInput) (*models.WithdrawRequest, error) {
	if userID == 0 {
		return nil, ErrInvalidUserID
	}
	amount := input.Amount.Decimal.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	var request *models.WithdrawRequest
	var exhausted bool
	err := s.keyRepo.Transaction(func(tx *gorm.DB) error {
		user, err := s.loadActiveUserForUpdate(tx, userID)
		if err != nil {
			return err
		}
		keyRepo := s.keyRepo.WithTx(tx)
		key, err := keyRepo.GetByOwnerForUpdate(user.ID)
		if err != nil {
			return wrapPersistence(err)
		}
		if key == nil {
			return ErrKeyNotFound
		}
		now := time.Now()
		if err := recordKeyWithdrawal(key, amount, now); err != nil {
			return err
		}
		event, err := s.createEvent(tx, key, constants.KeyEventWithdrawal, user.ID, nil, models.NewMoneyFromDecimal(amount), now)
		if err != nil {
			return err
		}
		eventID := event.ID
		if _, _, err := s.walletSvc.DebitInTx(tx, WalletMutation{
			UserID:     user.ID,
			Amount:     models.NewMoneyFromDecimal(amount),
			TxnType:    constants.WalletTxnTypeWithdraw,
			Reference:  buildKeyEventReference(eventID, "withdraw"),
			Remark:     "withdraw request",
			KeyEventID: &eventID,
		}); err != nil {
			return err
		}
		if err := keyRepo.Update(key); err != nil {
			return wrapPersistence(err)
		}
		request = &models.WithdrawRequest{
			UserID:    user.ID,
			KeyID:     key.ID,
			Amount:    models.NewMoneyFromDecimal(amount),
			Channel:   strings.TrimSpace(input.Channel),
			Account:   strings.TrimSpace(input.Account),
			Status:    constants.WithdrawStatusPendingReview,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.withdrawRepo.WithTx(tx).Create(request); err != nil {
			return wrapPersistence(err)
		}
		exhausted = key.State == constants.KeyStateExhausted
		return nil
	})
	if err != nil {
		return nil, wrapPersistence(err)
	}
	metrics.KeyTransitions.WithLabelValues(constants.KeyEventWithdrawal).Inc()
	if exhausted {
		logger.Infow("activation_key_exhausted", "user_id", userID, "withdraw_id", request.ID)
	}
	return request, nil
}

// ReviewWithdraw 审核提现：打款或驳回，驳回时退回余额并归还额度
func (s *KeyService) ReviewWithdraw(adminID, withdrawID uint, action, rejectReason string) (*models.WithdrawRequest, error) {
	if withdrawID == 0 {
		return nil, ErrWithdrawNotFound
	}
	act := strings.ToLower(strings.TrimSpace(action))
	if act != constants.WithdrawActionReject && act != constants.WithdrawActionPay {
		return nil, ErrWithdrawActionInvalid
	}
	rejectReason = truncateRunes(strings.TrimSpace(rejectReason), withdrawRejectReasonMax)
	var request *models.WithdrawRequest
	err := s.keyRepo.Transaction(func(tx *gorm.DB) error {
		withdrawRepo := s.withdrawRepo.WithTx(tx)
		req, err := withdrawRepo.GetByIDForUpdate(withdrawID)
		if err != nil {
			return wrapPersistence(err)
		}
		if req == nil {
			return ErrWithdrawNotFound
		}
		if req.Status != constants.WithdrawStatusPendingReview {
			return ErrWithdrawStatusInvalid
		}
		now := time.Now()
		req.ProcessedBy = &adminID
		req.ProcessedAt = &now
		req.UpdatedAt = now
		if act == constants.WithdrawActionPay {
			req.Status = constants.WithdrawStatusPaid
			req.RejectReason = ""
		} else {
			req.Status = constants.WithdrawStatusRejected
			req.RejectReason = rejectReason
			if err := s.refundWithdraw(tx, req, now); err != nil {
				return err
			}
		}
		if err := withdrawRepo.Update(req); err != nil {
			return wrapPersistence(err)
		}
		request = req
		return nil
	})
	if err != nil {
		return nil, wrapPersistence(err)
	}
	return request, nil
}

func (s *KeyService) refundWithdraw(tx *gorm.DB, req *models.WithdrawRequest, now time.Time) error {
	keyRepo := s.keyRepo.WithTx(tx)
	key, err := keyRepo.GetByIDForUpdate(req.KeyID)
	if err != nil {
		return wrapPersistence(err)
	}
	if _, _, err := s.walletSvc.CreditInTx(tx, WalletMutation{
		UserID:    req.UserID,
		Amount:    req.Amount,
		TxnType:   constants.WalletTxnTypeWithdrawRefund,
		Reference: buildWalletReference("withdraw_refund", req.ID),
		Remark:    "withdraw rejected",
	}); err != nil {
		return err
	}
	// 激活码已被续费或转手时不再归还额度
	if key == nil || key.OwnerUserID == nil || *key.OwnerUserID != req.UserID {
		return nil
	}
	if key.LastRenewedAt != nil && key.LastRenewedAt.After(req.CreatedAt) {
		return nil
	}
	restoreKeyWithdrawal(key, req.Amount.Decimal, now)
	if err := keyRepo.Update(key); err != nil {
		return wrapPersistence(err)
	}
	return nil
}

// ListWithdraws 查询提现申请
func (s *KeyService) ListWithdraws(filter repository.WithdrawListFilter) ([]models.WithdrawRequest, int64, error) {
	rows, total, err := s.withdrawRepo.List(filter)
	if err != nil {
		return nil, 0, wrapPersistence(err)
	}
	return rows, total, nil
}

// PauseKey 管理员暂停激活码
func (s *KeyService) PauseKey(adminID uint, code string) (*models.ActivationKey, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrKeyCodeRequired
	}
	var paused *models.ActivationKey
	err := s.keyRepo.Transaction(func(tx *gorm.DB) error {
		keyRepo := s.keyRepo.WithTx(tx)
		key, err := keyRepo.GetByCodeForUpdate(code)
		if err != nil {
			return wrapPersistence(err)
		}
		if key == nil {
			return ErrKeyNotFound
		}
		now := time.Now()
		if err := pauseKey(key, now); err != nil {
			return err
		}
		if err := keyRepo.Update(key); err != nil {
			return wrapPersistence(err)
		}
		var operator *uint
		if adminID != 0 {
			id := adminID
			operator = &id
		}
		if _, err := s.createEvent(tx, key, constants.KeyEventPause, *key.OwnerUserID, operator, models.Money{}, now); err != nil {
			return err
		}
		paused = key
		return nil
	})
	if err != nil {
		return nil, wrapPersistence(err)
	}
	metrics.KeyTransitions.WithLabelValues(constants.KeyEventPause).Inc()
	return paused, nil
}

// CreateKeys 批量生成未分配的激活码
func (s *KeyService) CreateKeys(input CreateKeysInput) ([]models.ActivationKey, error) {
	if input.Count <= 0 || input.Count > keyBatchMaxCount {
		return nil, ErrKeyBatchInvalid
	}
	if input.Price.IsNegative() || !input.WithdrawalLimit.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if input.OriginatorUserID == 0 {
		return nil, ErrInvalidUserID
	}
	originator, err := s.userRepo.GetByID(input.OriginatorUserID)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	if originator == nil {
		return nil, ErrUserNotFound
	}
	for attempt := 0; attempt < codeGenerateAttempts; attempt++ {
		keys, err := buildKeyBatch(input, time.Now())
		if err != nil {
			return nil, wrapPersistence(err)
		}
		if err := s.keyRepo.CreateBatch(keys); err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return nil, wrapPersistence(err)
		}
		return keys, nil
	}
	return nil, ErrKeyBatchInvalid
}

// ListKeys 后台查询激活码
func (s *KeyService) ListKeys(filter repository.ActivationKeyListFilter) ([]models.ActivationKey, int64, error) {
	keys, total, err := s.keyRepo.List(filter)
	if err != nil {
		return nil, 0, wrapPersistence(err)
	}
	return keys, total, nil
}

func buildKeyBatch(input CreateKeysInput, now time.Time) ([]models.ActivationKey, error) {
	keys := make([]models.ActivationKey, 0, input.Count)
	seen := make(map[string]struct{}, input.Count)
	for len(keys) < input.Count {
		raw, err := generateRandomCode(keyCodeLength)
		if err != nil {
			return nil, err
		}
		code := formatKeyCode(input.Prefix, raw)
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		keys = append(keys, models.ActivationKey{
			Code:             code,
			Price:            models.NewMoneyFromDecimal(input.Price.Decimal),
			WithdrawalLimit:  models.NewMoneyFromDecimal(input.WithdrawalLimit.Decimal),
			TotalWithdrawn:   models.NewMoneyFromDecimal(decimal.Zero),
			State:            constants.KeyStateUnassigned,
			OriginatorUserID: input.OriginatorUserID,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	return keys, nil
}

func buildKeyStatus(key *models.ActivationKey) *KeyStatus {
	if key == nil {
		zero := models.NewMoneyFromDecimal(decimal.Zero)
		return &KeyStatus{
			TotalWithdrawn:     zero,
			WithdrawalLimit:    zero,
			RemainingAllowance: zero,
			RenewalPrice:       zero,
		}
	}
	return &KeyStatus{
		HasKey:             true,
		Code:               key.Code,
		State:              keyPhase(key),
		TotalWithdrawn:     key.TotalWithdrawn,
		WithdrawalLimit:    key.WithdrawalLimit,
		RemainingAllowance: models.NewMoneyFromDecimal(keyRemainingAllowance(key)),
		IsPaused:           key.IsPaused,
		NeedsRenewal:       keyNeedsRenewal(key),
		RenewalPrice:       key.Price,
		RenewalCount:       key.RenewalCount,
		LastRenewedAt:      key.LastRenewedAt,
	}
}

func (s *KeyService) loadActiveUserForUpdate(tx *gorm.DB, userID uint) (*models.User, error) {
	user, err := s.userRepo.WithTx(tx).GetByIDForUpdate(userID)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Status == constants.UserStatusDisabled {
		return nil, ErrUserDisabled
	}
	return user, nil
}

func (s *KeyService) createEvent(tx *gorm.DB, key *models.ActivationKey, eventType string, userID uint, adminID *uint, amount models.Money, now time.Time) (*models.KeyEvent, error) {
	event := &models.KeyEvent{
		KeyID:     key.ID,
		EventType: eventType,
		UserID:    userID,
		AdminID:   adminID,
		Amount:    models.NewMoneyFromDecimal(amount.Decimal),
		CreatedAt: now,
	}
	if err := s.keyRepo.WithTx(tx).CreateEvent(event); err != nil {
		return nil, wrapPersistence(err)
	}
	return event, nil
}

func (s *KeyService) buildTrigger(event *models.KeyEvent, source *models.User, price models.Money) CommissionTrigger {
	return CommissionTrigger{
		EventID:        event.ID,
		TriggerType:    event.EventType,
		SourceUserID:   source.ID,
		ReferrerUserID: referrerOf(source),
		Price:          price,
	}
}

// lockParties 主账户与收佣账户一起按用户ID升序加锁
func (s *KeyService) lockParties(tx *gorm.DB, plan *CommissionPlan, primary ...uint) error {
	ids := append(append([]uint{}, primary...), plan.BeneficiaryIDs()...)
	if err := s.walletSvc.LockAccountsInTx(tx, ids); err != nil {
		return wrapPersistence(err)
	}
	return nil
}

// transferPrice 付款方扣款后入账给出售方，价格为 0 时不产生流水
func (s *KeyService) transferPrice(tx *gorm.DB, event *models.KeyEvent, payerID, payeeID uint, price models.Money, debitType, creditType string) error {
	if !price.IsPositive() {
		return nil
	}
	eventID := event.ID
	if _, _, err := s.walletSvc.DebitInTx(tx, WalletMutation{
		UserID:     payerID,
		Amount:     price,
		TxnType:    debitType,
		Reference:  buildKeyEventReference(eventID, debitType),
		KeyEventID: &eventID,
	}); err != nil {
		return err
	}
	if _, _, err := s.walletSvc.CreditInTx(tx, WalletMutation{
		UserID:     payeeID,
		Amount:     price,
		TxnType:    creditType,
		Reference:  buildKeyEventReference(eventID, creditType),
		KeyEventID: &eventID,
	}); err != nil {
		return err
	}
	return nil
}

// markFirstActivation 用户首次持有激活码时累加直推上级的活跃人数
func (s *KeyService) markFirstActivation(tx *gorm.DB, user *models.User, now time.Time) error {
	if user.ActivatedAt != nil {
		return nil
	}
	user.ActivatedAt = &now
	user.UpdatedAt = now
	if err := s.userRepo.WithTx(tx).Update(user); err != nil {
		return wrapPersistence(err)
	}
	if user.ReferredBy == nil {
		return nil
	}
	if err := s.walletRepo.WithTx(tx).IncrementReferralCounters(*user.ReferredBy, 0, 1); err != nil {
		return wrapPersistence(err)
	}
	return nil
}

func (s *KeyService) afterCommit(result *KeyActionResult) {
	if result == nil || result.Event == nil {
		return
	}
	metrics.KeyTransitions.WithLabelValues(result.Event.EventType).Inc()
	recordCommissionMetrics(result.Commission)
	for _, failureID := range result.Commission.FailureIDs() {
		if err := s.queueClient.EnqueueCommissionReconcile(failureID, s.reconcileDelay); err != nil {
			logger.Warnw("commission_reconcile_enqueue_failed", "failure_id", failureID, "error", err)
		}
	}
}

func referrerOf(user *models.User) uint {
	if user == nil || user.ReferredBy == nil {
		return 0
	}
	return *user.ReferredBy
}
