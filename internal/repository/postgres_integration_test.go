//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adreward-next/internal/constants"
	"github.com/adreward-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.WalletTransaction{},
		&models.WalletAccount{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(cleanupModels...); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

// TestPostgresConcurrentCreditsKeepLedgerChain 并发入账时行锁保证流水前后余额首尾相接
func TestPostgresConcurrentCreditsKeepLedgerChain(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewWalletRepository(db)
	now := time.Now()
	if err := repo.CreateAccount(&models.WalletAccount{UserID: 1, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create account failed: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Transaction(func(tx *gorm.DB) error {
				txRepo := repo.WithTx(tx)
				account, err := txRepo.GetAccountByUserIDForUpdate(1)
				if err != nil {
					return err
				}
				before := account.Balance.Decimal
				after := before.Add(decimal.NewFromInt(10))
				account.Balance = models.NewMoneyFromDecimal(after)
				if err := txRepo.UpdateAccount(account); err != nil {
					return err
				}
				return txRepo.CreateTransaction(&models.WalletTransaction{
					UserID:        1,
					Type:          constants.WalletTxnTypeCommission,
					Direction:     constants.WalletTxnDirectionIn,
					Amount:        models.NewMoneyFromInt(10),
					BalanceBefore: models.NewMoneyFromDecimal(before),
					BalanceAfter:  models.NewMoneyFromDecimal(after),
					Currency:      "INR",
					CreatedAt:     time.Now(),
				})
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent credit failed: %v", err)
		}
	}

	txns, err := repo.ListTransactionsByUserAsc(1)
	if err != nil {
		t.Fatalf("list transactions failed: %v", err)
	}
	if len(txns) != workers {
		t.Fatalf("expected %d transactions, got %d", workers, len(txns))
	}
	for i := 1; i < len(txns); i++ {
		if !txns[i].BalanceBefore.Decimal.Equal(txns[i-1].BalanceAfter.Decimal) {
			t.Fatalf("ledger chain broken at %d", i)
		}
	}
	account, err := repo.GetAccountByUserID(1)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if !account.Balance.Decimal.Equal(decimal.NewFromInt(10 * workers)) {
		t.Fatalf("unexpected balance: %s", account.Balance.String())
	}
}
