package service

import (
	"errors"
	"testing"

	"github.com/adreward-next/internal/constants"
	"github.com/adreward-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type failingCreditor struct {
	inner    walletCreditor
	failUser uint
	panics   bool
}

func (c *failingCreditor) CreditInTx(tx *gorm.DB, m WalletMutation) (*models.WalletAccount, *models.WalletTransaction, error) {
	if m.UserID != c.failUser {
		return c.inner.CreditInTx(tx, m)
	}
	// 先真实写入，再失败，验证保存点回滚
	if _, _, err := c.inner.CreditInTx(tx, m); err != nil {
		return nil, nil, err
	}
	if c.panics {
		panic("simulated credit panic")
	}
	return nil, nil, errors.New("simulated credit failure")
}

// A(1) <- B(2) <- C(3) <- D(4) <- E(5) <- F(6) <- G(7)
func setupSixLevelScenario(t *testing.T, name string) *serviceFixture {
	t.Helper()
	f := setupServiceFixture(t, name)
	f.createLinearChain(t, 1, 2, 3, 4, 5, 6, 7)
	f.createTier(t, "Standard", 0, 5000, 500, 300, 200, 100, 50, 50)
	return f
}

func processInTx(t *testing.T, f *serviceFixture, trigger CommissionTrigger) *CommissionOutcome {
	t.Helper()
	var outcome *CommissionOutcome
	err := f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		outcome, err = f.engine.Process(tx, trigger)
		return err
	})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	return outcome
}

func purchaseTrigger(eventID uint) CommissionTrigger {
	return CommissionTrigger{
		EventID:        eventID,
		TriggerType:    constants.KeyEventPurchase,
		SourceUserID:   7,
		ReferrerUserID: 6,
		Price:          models.NewMoneyFromInt(2000),
	}
}

func TestCommissionEngineSixLevelScenario(t *testing.T) {
	f := setupSixLevelScenario(t, "engine_six_level")
	outcome := processInTx(t, f, purchaseTrigger(11))

	if outcome.Plan.Tier == nil || outcome.Plan.Tier.Name != "Standard" {
		t.Fatalf("expected Standard tier, got %+v", outcome.Plan.Tier)
	}
	if len(outcome.Plan.Chain) != 6 {
		t.Fatalf("expected 6 chain entries, got %d", len(outcome.Plan.Chain))
	}
	if len(outcome.Commissions) != 6 || len(outcome.Failures) != 0 {
		t.Fatalf("expected 6 commissions and no failures, got %d/%d", len(outcome.Commissions), len(outcome.Failures))
	}

	expected := map[uint]int64{6: 500, 5: 300, 4: 200, 3: 100, 2: 50, 1: 50}
	total := decimal.Zero
	for userID, amount := range expected {
		got := f.balanceOf(t, userID)
		if !got.Equal(mustDecimal(amount)) {
			t.Fatalf("user %d expected %d, got %s", userID, amount, got.String())
		}
		total = total.Add(got)
	}
	if !total.Equal(mustDecimal(1200)) {
		t.Fatalf("expected total 1200, got %s", total.String())
	}
	if count := f.countRows(t, &models.ReferralCommission{}, "key_event_id = ?", 11); count != 6 {
		t.Fatalf("expected 6 commission records, got %d", count)
	}
	if count := f.countRows(t, &models.WalletTransaction{}, "type = ?", constants.WalletTxnTypeCommission); count != 6 {
		t.Fatalf("expected 6 commission transactions, got %d", count)
	}
	for _, commission := range outcome.Commissions {
		if commission.SourceUserID != 7 || commission.TierName != "Standard" || commission.TriggerType != constants.KeyEventPurchase {
			t.Fatalf("unexpected commission: %+v", commission)
		}
	}
	account, err := f.walletRepo.GetAccountByUserID(6)
	if err != nil || account == nil {
		t.Fatalf("get account failed: %v", err)
	}
	if !account.TotalCommissionEarned.Decimal.Equal(mustDecimal(500)) {
		t.Fatalf("expected total commission earned 500, got %s", account.TotalCommissionEarned.String())
	}
	f.assertLedgerConsistent(t, 1, 2, 3, 4, 5, 6)
}

func TestCommissionEngineSkipsZeroRateLevels(t *testing.T) {
	f := setupServiceFixture(t, "engine_zero_rate")
	f.createLinearChain(t, 1, 2, 3, 4)
	f.createTier(t, "Sparse", 0, 1000, 100, 0, 40)

	outcome := processInTx(t, f, CommissionTrigger{
		EventID:        3,
		TriggerType:    constants.KeyEventPurchase,
		SourceUserID:   4,
		ReferrerUserID: 3,
		Price:          models.NewMoneyFromInt(500),
	})
	if len(outcome.Commissions) != 2 {
		t.Fatalf("expected 2 commissions, got %d", len(outcome.Commissions))
	}
	if outcome.Commissions[0].Level != 1 || outcome.Commissions[1].Level != 3 {
		t.Fatalf("unexpected levels: %d, %d", outcome.Commissions[0].Level, outcome.Commissions[1].Level)
	}
	if count := f.countRows(t, &models.WalletTransaction{}, "user_id = ?", 2); count != 0 {
		t.Fatalf("zero rate level must not write transactions, got %d", count)
	}
	if !f.balanceOf(t, 1).Equal(mustDecimal(40)) {
		t.Fatalf("expected level 3 balance 40, got %s", f.balanceOf(t, 1).String())
	}
}

func TestCommissionEngineNoTierIsNotAnError(t *testing.T) {
	f := setupSixLevelScenario(t, "engine_no_tier")
	trigger := purchaseTrigger(12)
	trigger.Price = models.NewMoneyFromInt(9000)

	outcome := processInTx(t, f, trigger)
	if outcome.Plan.SkipReason != commissionSkipNoTier {
		t.Fatalf("expected skip reason %q, got %q", commissionSkipNoTier, outcome.Plan.SkipReason)
	}
	if len(outcome.Commissions) != 0 {
		t.Fatalf("expected no commissions, got %d", len(outcome.Commissions))
	}
	if count := f.countRows(t, &models.WalletTransaction{}, ""); count != 0 {
		t.Fatalf("expected no transactions, got %d", count)
	}
}

func TestCommissionEngineAmbiguousTierSkips(t *testing.T) {
	f := setupSixLevelScenario(t, "engine_ambiguous")
	f.createTier(t, "Overlap", 1500, 2500, 1, 1, 1, 1, 1, 1)

	outcome := processInTx(t, f, purchaseTrigger(13))
	if outcome.Plan.SkipReason != commissionSkipNoTier {
		t.Fatalf("expected ambiguous tiers to skip, got %q", outcome.Plan.SkipReason)
	}
	if len(outcome.Commissions) != 0 {
		t.Fatalf("expected no commissions, got %d", len(outcome.Commissions))
	}
}

func TestCommissionEngineWithoutReferrer(t *testing.T) {
	f := setupSixLevelScenario(t, "engine_no_referrer")
	outcome := processInTx(t, f, CommissionTrigger{
		EventID:      14,
		TriggerType:  constants.KeyEventAssignment,
		SourceUserID: 1,
		Price:        models.NewMoneyFromInt(2000),
	})
	if outcome.Plan.SkipReason != commissionSkipNoReferrer {
		t.Fatalf("expected skip reason %q, got %q", commissionSkipNoReferrer, outcome.Plan.SkipReason)
	}
}

func TestCommissionEngineIsolatesFailingLevel(t *testing.T) {
	f := setupSixLevelScenario(t, "engine_failing_level")
	f.replaceCreditor(&failingCreditor{inner: f.wallet, failUser: 5})

	outcome := processInTx(t, f, purchaseTrigger(21))
	if len(outcome.Commissions) != 5 {
		t.Fatalf("expected 5 commissions, got %d", len(outcome.Commissions))
	}
	if len(outcome.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(outcome.Failures))
	}
	failure := outcome.Failures[0]
	if failure.BeneficiaryUserID != 5 || failure.Level != 2 || failure.Status != constants.CommissionFailureStatusPending {
		t.Fatalf("unexpected failure: %+v", failure)
	}
	if !failure.Amount.Decimal.Equal(mustDecimal(300)) {
		t.Fatalf("expected failure amount 300, got %s", failure.Amount.String())
	}
	if len(outcome.FailureIDs()) != 1 {
		t.Fatalf("expected failure id to be assigned")
	}
	if !f.balanceOf(t, 5).IsZero() {
		t.Fatalf("failed level must be rolled back, got balance %s", f.balanceOf(t, 5).String())
	}
	if count := f.countRows(t, &models.WalletTransaction{}, "user_id = ?", 5); count != 0 {
		t.Fatalf("failed level must leave no transaction, got %d", count)
	}
	if count := f.countRows(t, &models.CommissionFailure{}, "status = ?", constants.CommissionFailureStatusPending); count != 1 {
		t.Fatalf("expected persisted pending failure, got %d", count)
	}
	if !f.balanceOf(t, 4).Equal(mustDecimal(200)) {
		t.Fatalf("later levels must still be paid, got %s", f.balanceOf(t, 4).String())
	}
	f.assertLedgerConsistent(t, 1, 2, 3, 4, 6)
}

func TestCommissionEngineRecoversPanickingLevel(t *testing.T) {
	f := setupSixLevelScenario(t, "engine_panic_level")
	f.replaceCreditor(&failingCreditor{inner: f.wallet, failUser: 6, panics: true})

	outcome := processInTx(t, f, purchaseTrigger(22))
	if len(outcome.Commissions) != 5 || len(outcome.Failures) != 1 {
		t.Fatalf("expected 5 commissions and 1 failure, got %d/%d", len(outcome.Commissions), len(outcome.Failures))
	}
	if outcome.Failures[0].Reason == "" {
		t.Fatalf("expected failure reason to be recorded")
	}
	if !f.balanceOf(t, 6).IsZero() {
		t.Fatalf("panicking level must be rolled back, got %s", f.balanceOf(t, 6).String())
	}
}

// 引擎本身不去重，同一事件调用两次会分发两次，去重由调用方负责
func TestCommissionEngineDistributesTwiceWhenInvokedTwice(t *testing.T) {
	f := setupSixLevelScenario(t, "engine_twice")
	processInTx(t, f, purchaseTrigger(31))
	processInTx(t, f, purchaseTrigger(31))

	if !f.balanceOf(t, 6).Equal(mustDecimal(1000)) {
		t.Fatalf("expected level 1 paid twice, got %s", f.balanceOf(t, 6).String())
	}
	if count := f.countRows(t, &models.ReferralCommission{}, "key_event_id = ?", 31); count != 12 {
		t.Fatalf("expected 12 commission records, got %d", count)
	}
	f.assertLedgerConsistent(t, 1, 2, 3, 4, 5, 6)
}

func TestCommissionEngineRollsBackWithHostTransaction(t *testing.T) {
	f := setupSixLevelScenario(t, "engine_host_rollback")
	hostErr := errors.New("host failed")
	err := f.db.Transaction(func(tx *gorm.DB) error {
		if _, err := f.engine.Process(tx, purchaseTrigger(41)); err != nil {
			return err
		}
		return hostErr
	})
	if !errors.Is(err, hostErr) {
		t.Fatalf("expected host error, got %v", err)
	}
	if count := f.countRows(t, &models.ReferralCommission{}, ""); count != 0 {
		t.Fatalf("expected commissions rolled back, got %d", count)
	}
	if count := f.countRows(t, &models.WalletTransaction{}, ""); count != 0 {
		t.Fatalf("expected transactions rolled back, got %d", count)
	}
}

func TestCommissionPlanBeneficiaryIDs(t *testing.T) {
	tier := &models.CommissionTier{}
	tier.SetRates([]models.Money{models.NewMoneyFromInt(10), models.NewMoneyFromInt(0), models.NewMoneyFromInt(5)})
	plan := &CommissionPlan{
		Tier:  tier,
		Chain: []ChainEntry{{UserID: 8, Level: 1}, {UserID: 4, Level: 2}, {UserID: 2, Level: 3}},
	}
	ids := plan.BeneficiaryIDs()
	if len(ids) != 2 || ids[0] != 8 || ids[1] != 2 {
		t.Fatalf("unexpected beneficiary ids: %v", ids)
	}
	var empty *CommissionPlan
	if empty.BeneficiaryIDs() != nil {
		t.Fatalf("nil plan must return nil")
	}
}

func TestBuildCommissionReference(t *testing.T) {
	if got := buildCommissionReference(7, 3); got != "key_event:7:commission:L3" {
		t.Fatalf("unexpected reference: %s", got)
	}
}
