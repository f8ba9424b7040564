package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/adreward-next/internal/constants"
	"github.com/adreward-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupRepositoryTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
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
	return db
}

func TestUniqueSortedIDs(t *testing.T) {
	got := UniqueSortedIDs([]uint{9, 3, 0, 3, 7, 1, 9})
	want := []uint{1, 3, 7, 9}
	if len(got) != len(want) {
		t.Fatalf("unexpected ids: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected ids: %v", got)
		}
	}
}

func TestWalletRepositoryLockAccountsByUserIDs(t *testing.T) {
	db := setupRepositoryTestDB(t, "wallet_repo_lock")
	repo := NewWalletRepository(db)
	now := time.Now()
	for _, userID := range []uint{30, 10, 20} {
		if err := repo.CreateAccount(&models.WalletAccount{UserID: userID, CreatedAt: now, UpdatedAt: now}); err != nil {
			t.Fatalf("create account failed: %v", err)
		}
	}

	err := repo.Transaction(func(tx *gorm.DB) error {
		accounts, err := repo.WithTx(tx).LockAccountsByUserIDs([]uint{30, 10, 20, 10, 99})
		if err != nil {
			return err
		}
		if len(accounts) != 3 {
			t.Fatalf("expected 3 locked accounts, got %d", len(accounts))
		}
		for i, expected := range []uint{10, 20, 30} {
			if accounts[i].UserID != expected {
				t.Fatalf("unexpected lock order: %+v", accounts)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}

func TestWalletRepositoryTransactionsAscAndCounters(t *testing.T) {
	db := setupRepositoryTestDB(t, "wallet_repo_txn")
	repo := NewWalletRepository(db)
	now := time.Now()
	if err := repo.CreateAccount(&models.WalletAccount{UserID: 1, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create account failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		txn := &models.WalletTransaction{
			UserID:        1,
			Type:          constants.WalletTxnTypeAdminAdjust,
			Direction:     constants.WalletTxnDirectionIn,
			Amount:        models.NewMoneyFromInt(10),
			BalanceBefore: models.NewMoneyFromInt(int64(i * 10)),
			BalanceAfter:  models.NewMoneyFromInt(int64((i + 1) * 10)),
			Currency:      "INR",
			Reference:     fmt.Sprintf("test:%d", i),
			CreatedAt:     now,
		}
		if err := repo.CreateTransaction(txn); err != nil {
			t.Fatalf("create transaction failed: %v", err)
		}
	}

	txns, err := repo.ListTransactionsByUserAsc(1)
	if err != nil {
		t.Fatalf("list asc failed: %v", err)
	}
	if len(txns) != 3 || txns[0].Reference != "test:0" || txns[2].Reference != "test:2" {
		t.Fatalf("unexpected order: %+v", txns)
	}

	page, total, err := repo.ListTransactions(WalletTransactionListFilter{UserID: 1, Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list page failed: %v", err)
	}
	if total != 3 || len(page) != 2 || page[0].Reference != "test:2" {
		t.Fatalf("unexpected page: total=%d rows=%+v", total, page)
	}

	if err := repo.IncrementReferralCounters(1, 2, 1); err != nil {
		t.Fatalf("increment counters failed: %v", err)
	}
	account, err := repo.GetAccountByUserID(1)
	if err != nil || account == nil {
		t.Fatalf("get account failed: %v", err)
	}
	if account.TotalReferrals != 2 || account.ActiveReferrals != 1 {
		t.Fatalf("unexpected counters: %+v", account)
	}
}

func TestActivationKeyRepositoryOwnerLookup(t *testing.T) {
	db := setupRepositoryTestDB(t, "key_repo_owner")
	repo := NewActivationKeyRepository(db)
	owner := uint(5)
	keys := []models.ActivationKey{
		{Code: "KEY-UNASSIGNED", Price: models.NewMoneyFromInt(2000), WithdrawalLimit: models.NewMoneyFromInt(4000), State: constants.KeyStateUnassigned, OriginatorUserID: 1},
		{Code: "KEY-OWNED", Price: models.NewMoneyFromInt(2000), WithdrawalLimit: models.NewMoneyFromInt(4000), State: constants.KeyStateActive, OwnerUserID: &owner, OriginatorUserID: 1},
	}
	if err := repo.CreateBatch(keys); err != nil {
		t.Fatalf("create keys failed: %v", err)
	}

	key, err := repo.GetByOwner(owner)
	if err != nil {
		t.Fatalf("get by owner failed: %v", err)
	}
	if key == nil || key.Code != "KEY-OWNED" {
		t.Fatalf("unexpected owned key: %+v", key)
	}
	byCode, err := repo.GetByCode(" key-unassigned ")
	if err != nil || byCode == nil {
		t.Fatalf("get by code failed: %v %+v", err, byCode)
	}
	missing, err := repo.GetByOwner(99)
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown owner, got %+v %v", missing, err)
	}

	list, total, err := repo.List(ActivationKeyListFilter{State: constants.KeyStateActive})
	if err != nil || total != 1 || len(list) != 1 {
		t.Fatalf("unexpected list: total=%d err=%v", total, err)
	}
}

func TestCommissionRepositoryPendingFailures(t *testing.T) {
	db := setupRepositoryTestDB(t, "commission_repo_failures")
	repo := NewCommissionRepository(db)
	statuses := []string{
		constants.CommissionFailureStatusPending,
		constants.CommissionFailureStatusResolved,
		constants.CommissionFailureStatusPending,
	}
	for i, status := range statuses {
		failure := &models.CommissionFailure{
			KeyEventID:        1,
			BeneficiaryUserID: uint(10 + i),
			SourceUserID:      1,
			Level:             i + 1,
			Amount:            models.NewMoneyFromInt(100),
			TierName:          "Standard",
			TriggerType:       constants.KeyEventPurchase,
			Status:            status,
		}
		if err := repo.CreateFailure(failure); err != nil {
			t.Fatalf("create failure failed: %v", err)
		}
	}
	ids, err := repo.ListPendingFailureIDs(10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(ids) != 2 || ids[0] >= ids[1] {
		t.Fatalf("unexpected pending ids: %v", ids)
	}
	limited, err := repo.ListPendingFailureIDs(1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limit not applied: %v %v", limited, err)
	}
}
