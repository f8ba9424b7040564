package service

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/adreward-next/internal/constants"
	"github.com/adreward-next/internal/models"
	"github.com/adreward-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	walletDefaultCurrency = "INR"
	walletRemarkMax       = 255
)

// WalletService 钱包服务，所有余额变动都经过 applyInTx
type WalletService struct {
	walletRepo repository.WalletRepository
	currency   string
}

// WalletMutation 事务内单笔余额变动
type WalletMutation struct {
	UserID     uint
	Amount     models.Money
	TxnType    string
	Reference  string
	Remark     string
	KeyEventID *uint
	Commission bool // 入账同时累加 total_commission_earned
}

// WalletAdjustInput 管理员余额调整输入
type WalletAdjustInput struct {
	UserID uint
	Delta  models.Money
	Remark string
}

// LedgerReport 账本校验结果
type LedgerReport struct {
	UserID           uint         `json:"user_id"`
	Balance          models.Money `json:"balance"`
	TransactionCount int          `json:"transaction_count"`
	Consistent       bool         `json:"consistent"`
	BrokenAtTxnID    uint         `json:"broken_at_txn_id,omitempty"`
	Reason           string       `json:"reason,omitempty"`
}

// NewWalletService 创建钱包服务
func NewWalletService(walletRepo repository.WalletRepository, currency string) *WalletService {
	return &WalletService{
		walletRepo: walletRepo,
		currency:   normalizeWalletCurrency(currency),
	}
}

// GetAccount 获取钱包账户（不存在时自动创建）
func (s *WalletService) GetAccount(userID uint) (*models.WalletAccount, error) {
	if userID == 0 {
		return nil, ErrWalletAccountNotFound
	}
	return s.getOrCreateAccount(userID)
}

// ListTransactions 查询钱包流水
func (s *WalletService) ListTransactions(filter repository.WalletTransactionListFilter) ([]models.WalletTransaction, int64, error) {
	txns, total, err := s.walletRepo.ListTransactions(filter)
	if err != nil {
		return nil, 0, wrapPersistence(err)
	}
	return txns, total, nil
}

// AdminAdjustBalance 管理员增减用户余额
func (s *WalletService) AdminAdjustBalance(input WalletAdjustInput) (*models.WalletAccount, *models.WalletTransaction, error) {
	if input.UserID == 0 {
		return nil, nil, ErrWalletAccountNotFound
	}
	delta := input.Delta.Decimal.Round(2)
	if delta.IsZero() {
		return nil, nil, ErrInvalidAmount
	}
	mutation := WalletMutation{
		UserID:    input.UserID,
		Amount:    models.NewMoneyFromDecimal(delta.Abs()),
		TxnType:   constants.WalletTxnTypeAdminAdjust,
		Reference: buildWalletReference("admin_adjust", input.UserID),
		Remark:    cleanWalletRemark(input.Remark, "管理员调整余额"),
	}
	var accountResult *models.WalletAccount
	var txnResult *models.WalletTransaction
	err := s.walletRepo.Transaction(func(tx *gorm.DB) error {
		var err error
		if delta.LessThan(decimal.Zero) {
			accountResult, txnResult, err = s.DebitInTx(tx, mutation)
		} else {
			accountResult, txnResult, err = s.CreditInTx(tx, mutation)
		}
		return err
	})
	if err != nil {
		return nil, nil, wrapPersistence(err)
	}
	return accountResult, txnResult, nil
}

// CreditInTx 在事务内入账并写入流水
func (s *WalletService) CreditInTx(tx *gorm.DB, m WalletMutation) (*models.WalletAccount, *models.WalletTransaction, error) {
	return s.applyInTx(tx, m, constants.WalletTxnDirectionIn)
}

// DebitInTx 在事务内扣款并写入流水，余额不足时不写入任何数据
func (s *WalletService) DebitInTx(tx *gorm.DB, m WalletMutation) (*models.WalletAccount, *models.WalletTransaction, error) {
	return s.applyInTx(tx, m, constants.WalletTxnDirectionOut)
}

// LockAccountsInTx 确保账户存在后按用户ID升序加锁
func (s *WalletService) LockAccountsInTx(tx *gorm.DB, userIDs []uint) error {
	if tx == nil {
		return ErrPersistence
	}
	ids := repository.UniqueSortedIDs(userIDs)
	repo := s.walletRepo.WithTx(tx)
	existing, err := repo.GetAccountsByUserIDs(ids)
	if err != nil {
		return err
	}
	found := make(map[uint]struct{}, len(existing))
	for _, account := range existing {
		found[account.UserID] = struct{}{}
	}
	// 缺失账户同样按升序创建，唯一索引上的插入锁与行锁顺序一致
	now := time.Now()
	for _, userID := range ids {
		if _, ok := found[userID]; ok {
			continue
		}
		if _, err := s.ensureAccountForUpdate(repo, userID, now); err != nil {
			return err
		}
		found[userID] = struct{}{}
	}
	_, err = repo.LockAccountsByUserIDs(ids)
	return err
}

func (s *WalletService) applyInTx(tx *gorm.DB, m WalletMutation, direction string) (*models.WalletAccount, *models.WalletTransaction, error) {
	if tx == nil {
		return nil, nil, ErrPersistence
	}
	if m.UserID == 0 {
		return nil, nil, ErrWalletAccountNotFound
	}
	amount := m.Amount.Decimal.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, ErrInvalidAmount
	}
	txnType := strings.TrimSpace(m.TxnType)
	if txnType == "" {
		txnType = constants.WalletTxnTypeAdminAdjust
	}
	now := time.Now()
	repo := s.walletRepo.WithTx(tx)

	account, err := s.ensureAccountForUpdate(repo, m.UserID, now)
	if err != nil {
		return nil, nil, err
	}
	before := account.Balance.Decimal.Round(2)
	after := before.Add(amount).Round(2)
	if direction == constants.WalletTxnDirectionOut {
		after = before.Sub(amount).Round(2)
		if after.LessThan(decimal.Zero) {
			return nil, nil, ErrWalletInsufficientBalance
		}
	}

	account.Balance = models.NewMoneyFromDecimal(after)
	if m.Commission && direction == constants.WalletTxnDirectionIn {
		account.TotalCommissionEarned = models.NewMoneyFromDecimal(account.TotalCommissionEarned.Decimal.Add(amount))
	}
	account.UpdatedAt = now
	if err := repo.UpdateAccount(account); err != nil {
		return nil, nil, wrapPersistence(err)
	}

	txn := &models.WalletTransaction{
		UserID:        m.UserID,
		KeyEventID:    m.KeyEventID,
		Type:          txnType,
		Direction:     direction,
		Amount:        models.NewMoneyFromDecimal(amount),
		BalanceBefore: models.NewMoneyFromDecimal(before),
		BalanceAfter:  models.NewMoneyFromDecimal(after),
		Currency:      s.currency,
		Reference:     strings.TrimSpace(m.Reference),
		Remark:        cleanWalletRemark(m.Remark, txnType),
		CreatedAt:     now,
	}
	if err := repo.CreateTransaction(txn); err != nil {
		return nil, nil, wrapPersistence(err)
	}
	return account, txn, nil
}

// VerifyLedger 回放用户流水并校验前后余额首尾相接
func (s *WalletService) VerifyLedger(userID uint) (*LedgerReport, error) {
	if userID == 0 {
		return nil, ErrWalletAccountNotFound
	}
	account, err := s.walletRepo.GetAccountByUserID(userID)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	if account == nil {
		return nil, ErrWalletAccountNotFound
	}
	txns, err := s.walletRepo.ListTransactionsByUserAsc(userID)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	report := &LedgerReport{
		UserID:           userID,
		Balance:          account.Balance,
		TransactionCount: len(txns),
		Consistent:       true,
	}
	if brokenAt, reason := checkLedgerChain(txns, account.Balance); reason != "" {
		report.Consistent = false
		report.BrokenAtTxnID = brokenAt
		report.Reason = reason
	}
	return report, nil
}

// checkLedgerChain 返回首个断点流水ID与原因，账本一致时原因为空
func checkLedgerChain(txns []models.WalletTransaction, balance models.Money) (uint, string) {
	expectedBefore := decimal.Zero
	for _, txn := range txns {
		if !txn.BalanceBefore.Decimal.Equal(expectedBefore) {
			return txn.ID, fmt.Sprintf("balance_before %s != previous balance_after %s", txn.BalanceBefore.String(), models.NewMoneyFromDecimal(expectedBefore).String())
		}
		delta := txn.Amount.Decimal
		if txn.Direction == constants.WalletTxnDirectionOut {
			delta = delta.Neg()
		}
		if !txn.BalanceBefore.Decimal.Add(delta).Equal(txn.BalanceAfter.Decimal) {
			return txn.ID, "balance_after does not match amount"
		}
		if txn.BalanceAfter.Decimal.LessThan(decimal.Zero) {
			return txn.ID, "negative balance"
		}
		expectedBefore = txn.BalanceAfter.Decimal
	}
	if !expectedBefore.Equal(balance.Decimal) {
		return 0, fmt.Sprintf("account balance %s != last balance_after %s", balance.String(), models.NewMoneyFromDecimal(expectedBefore).String())
	}
	return 0, ""
}

func (s *WalletService) getOrCreateAccount(userID uint) (*models.WalletAccount, error) {
	account, err := s.walletRepo.GetAccountByUserID(userID)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	if account != nil {
		return account, nil
	}
	now := time.Now()
	account = &models.WalletAccount{
		UserID:    userID,
		Balance:   models.NewMoneyFromDecimal(decimal.Zero),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.walletRepo.CreateAccount(account); err != nil {
		return nil, wrapPersistence(err)
	}
	if account.ID == 0 {
		created, err := s.walletRepo.GetAccountByUserID(userID)
		if err != nil {
			return nil, wrapPersistence(err)
		}
		if created == nil {
			return nil, ErrWalletAccountNotFound
		}
		return created, nil
	}
	return account, nil
}

func (s *WalletService) ensureAccountForUpdate(repo repository.WalletRepository, userID uint, now time.Time) (*models.WalletAccount, error) {
	account, err := repo.GetAccountByUserIDForUpdate(userID)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	if account != nil {
		return account, nil
	}
	account = &models.WalletAccount{
		UserID:    userID,
		Balance:   models.NewMoneyFromDecimal(decimal.Zero),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateAccount(account); err != nil {
		return nil, wrapPersistence(err)
	}
	if account.ID == 0 {
		// 并发创建，读取已存在的账户并加锁
		created, err := repo.GetAccountByUserIDForUpdate(userID)
		if err != nil {
			return nil, wrapPersistence(err)
		}
		if created == nil {
			return nil, ErrWalletAccountNotFound
		}
		return created, nil
	}
	return account, nil
}

func normalizeWalletCurrency(currency string) string {
	normalized := strings.ToUpper(strings.TrimSpace(currency))
	if normalized == "" {
		return walletDefaultCurrency
	}
	return normalized
}

func cleanWalletRemark(raw string, fallback string) string {
	remark := strings.TrimSpace(raw)
	if remark == "" {
		return fallback
	}
	return truncateRunes(remark, walletRemarkMax)
}

// truncateRunes 按字符截断，避免切断多字节字符
func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func buildKeyEventReference(eventID uint, action string) string {
	action = strings.TrimSpace(action)
	if action == "" {
		action = "wallet"
	}
	return fmt.Sprintf("key_event:%d:%s", eventID, action)
}

func buildWalletReference(prefix string, id uint) string {
	normalized := strings.TrimSpace(prefix)
	if normalized == "" {
		normalized = "wallet"
	}
	return fmt.Sprintf("%s:%d:%d", normalized, id, time.Now().UnixNano())
}
