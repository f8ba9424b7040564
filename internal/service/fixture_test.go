package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/adreward-next/internal/constants"
	"github.com/adreward-next/internal/models"
	"github.com/adreward-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type serviceFixture struct {
	db             *gorm.DB
	userRepo       repository.UserRepository
	walletRepo     repository.WalletRepository
	tierRepo       repository.CommissionTierRepository
	keyRepo        repository.ActivationKeyRepository
	commissionRepo repository.CommissionRepository
	withdrawRepo   repository.WithdrawRepository
	wallet         *WalletService
	resolver       *TierResolver
	chain          *ReferralChainBuilder
	distributor    *CommissionDistributor
	engine         *CommissionEngine
}

func setupServiceFixture(t *testing.T, name string) *serviceFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Admin{},
		&models.WalletAccount{},
		&models.WalletTransaction{},
		&models.CommissionTier{},
		&models.ActivationKey{},
		&models.KeyEvent{},
		&models.ReferralCommission{},
		&models.CommissionFailure{},
		&models.WithdrawRequest{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	f := &serviceFixture{
		db:             db,
		userRepo:       repository.NewUserRepository(db),
		walletRepo:     repository.NewWalletRepository(db),
		tierRepo:       repository.NewCommissionTierRepository(db),
		keyRepo:        repository.NewActivationKeyRepository(db),
		commissionRepo: repository.NewCommissionRepository(db),
		withdrawRepo:   repository.NewWithdrawRepository(db),
	}
	f.wallet = NewWalletService(f.walletRepo, "INR")
	f.resolver = NewTierResolver(f.tierRepo, nil, 0)
	f.chain = NewReferralChainBuilder(f.userRepo, 6)
	f.distributor = NewCommissionDistributor(f.wallet, f.commissionRepo)
	f.engine = NewCommissionEngine(f.resolver, f.chain, f.distributor, f.wallet)
	return f
}

// replaceCreditor 替换分发器的入账实现，用于注入失败
func (f *serviceFixture) replaceCreditor(creditor walletCreditor) {
	f.distributor = NewCommissionDistributor(creditor, f.commissionRepo)
	f.engine = NewCommissionEngine(f.resolver, f.chain, f.distributor, f.wallet)
}

func (f *serviceFixture) createUser(t *testing.T, id uint, referredBy uint) *models.User {
	t.Helper()
	now := time.Now()
	user := &models.User{
		ID:           id,
		Email:        fmt.Sprintf("user_%d@example.com", id),
		PasswordHash: "hash",
		Status:       constants.UserStatusActive,
		ReferralCode: fmt.Sprintf("REF%06d", id),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if referredBy != 0 {
		parent := referredBy
		user.ReferredBy = &parent
	}
	if err := f.db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

// createLinearChain 创建 ids[0] <- ids[1] <- ... 的推荐关系，ids[0] 无上级
func (f *serviceFixture) createLinearChain(t *testing.T, ids ...uint) {
	t.Helper()
	var parent uint
	for _, id := range ids {
		f.createUser(t, id, parent)
		parent = id
	}
}

func (f *serviceFixture) createTier(t *testing.T, name string, minPrice, maxPrice int64, rates ...int64) *models.CommissionTier {
	t.Helper()
	tier := &models.CommissionTier{
		Name:     name,
		MinPrice: models.NewMoneyFromInt(minPrice),
		MaxPrice: models.NewMoneyFromInt(maxPrice),
		IsActive: true,
	}
	values := make([]models.Money, 0, len(rates))
	for _, rate := range rates {
		values = append(values, models.NewMoneyFromInt(rate))
	}
	tier.SetRates(values)
	if err := f.db.Create(tier).Error; err != nil {
		t.Fatalf("create tier failed: %v", err)
	}
	return tier
}

func (f *serviceFixture) createKey(t *testing.T, code string, price, limit int64, originatorID uint) *models.ActivationKey {
	t.Helper()
	now := time.Now()
	key := &models.ActivationKey{
		Code:             code,
		Price:            models.NewMoneyFromInt(price),
		WithdrawalLimit:  models.NewMoneyFromInt(limit),
		TotalWithdrawn:   models.NewMoneyFromInt(0),
		State:            constants.KeyStateUnassigned,
		OriginatorUserID: originatorID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := f.db.Create(key).Error; err != nil {
		t.Fatalf("create key failed: %v", err)
	}
	return key
}

func (f *serviceFixture) fund(t *testing.T, userID uint, amount int64) {
	t.Helper()
	if _, _, err := f.wallet.AdminAdjustBalance(WalletAdjustInput{
		UserID: userID,
		Delta:  models.NewMoneyFromInt(amount),
		Remark: "fixture",
	}); err != nil {
		t.Fatalf("fund user %d failed: %v", userID, err)
	}
}

func (f *serviceFixture) balanceOf(t *testing.T, userID uint) decimal.Decimal {
	t.Helper()
	account, err := f.walletRepo.GetAccountByUserID(userID)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if account == nil {
		return decimal.Zero
	}
	return account.Balance.Decimal
}

func (f *serviceFixture) countRows(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var count int64
	db := f.db.Model(model)
	if query != "" {
		db = db.Where(query, args...)
	}
	if err := db.Count(&count).Error; err != nil {
		t.Fatalf("count rows failed: %v", err)
	}
	return count
}

func (f *serviceFixture) assertLedgerConsistent(t *testing.T, userIDs ...uint) {
	t.Helper()
	for _, userID := range userIDs {
		report, err := f.wallet.VerifyLedger(userID)
		if err != nil {
			t.Fatalf("verify ledger for user %d failed: %v", userID, err)
		}
		if !report.Consistent {
			t.Fatalf("ledger for user %d broken at txn %d: %s", userID, report.BrokenAtTxnID, report.Reason)
		}
	}
}

func mustDecimal(value int64) decimal.Decimal {
	return decimal.NewFromInt(value)
}
