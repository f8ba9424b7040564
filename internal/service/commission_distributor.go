package service

import (
	"fmt"
	"time"

	"github.com/adreward-next/internal/constants"
	"github.com/adreward-next/internal/logger"
	"github.com/adreward-next/internal/models"
	"github.com/adreward-next/internal/repository"

	"gorm.io/gorm"
)

// walletCreditor 事务内入账
type walletCreditor interface {
	CreditInTx(tx *gorm.DB, m WalletMutation) (*models.WalletAccount, *models.WalletTransaction, error)
}

// CommissionDistributor 把档位和推荐链转成逐级入账
type CommissionDistributor struct {
	creditor       walletCreditor
	commissionRepo repository.CommissionRepository
}

// NewCommissionDistributor 创建佣金分发器
func NewCommissionDistributor(creditor walletCreditor, commissionRepo repository.CommissionRepository) *CommissionDistributor {
	return &CommissionDistributor{creditor: creditor, commissionRepo: commissionRepo}
}

// commissionCredit 单级佣金入账参数
type commissionCredit struct {
	EventID           uint
	BeneficiaryUserID uint
	SourceUserID      uint
	Level             int
	Amount            models.Money
	TierName          string
	TriggerType       string
}

func creditFromFailure(failure *models.CommissionFailure) commissionCredit {
	return commissionCredit{
		EventID:           failure.KeyEventID,
		BeneficiaryUserID: failure.BeneficiaryUserID,
		SourceUserID:      failure.SourceUserID,
		Level:             failure.Level,
		Amount:            failure.Amount,
		TierName:          failure.TierName,
		TriggerType:       failure.TriggerType,
	}
}

// Distribute 按层级升序分发，佣金为 0 的层级跳过
func (d *CommissionDistributor) Distribute(tx *gorm.DB, plan *CommissionPlan) ([]models.ReferralCommission, []models.CommissionFailure) {
	commissions := make([]models.ReferralCommission, 0, len(plan.Chain))
	failures := make([]models.CommissionFailure, 0)
	for _, entry := range plan.Chain {
		rate := plan.Tier.RateForLevel(entry.Level)
		if !rate.IsPositive() {
			continue
		}
		credit := commissionCredit{
			EventID:           plan.Trigger.EventID,
			BeneficiaryUserID: entry.UserID,
			SourceUserID:      plan.Trigger.SourceUserID,
			Level:             entry.Level,
			Amount:            rate,
			TierName:          plan.Tier.Name,
			TriggerType:       plan.Trigger.TriggerType,
		}
		commission, err := d.applyCredit(tx, credit)
		if err == nil {
			commissions = append(commissions, *commission)
			continue
		}
		logger.Errorw("commission_level_failed",
			"event_id", credit.EventID,
			"trigger_type", credit.TriggerType,
			"source_user_id", credit.SourceUserID,
			"beneficiary_user_id", credit.BeneficiaryUserID,
			"level", credit.Level,
			"amount", credit.Amount.String(),
			"tier", credit.TierName,
			"error", err,
		)
		failure := d.recordFailure(tx, credit, err)
		if failure != nil {
			failures = append(failures, *failure)
		}
	}
	return commissions, failures
}

// applyCredit 在保存点内完成单级入账，失败或 panic 时回滚到保存点
func (d *CommissionDistributor) applyCredit(tx *gorm.DB, credit commissionCredit) (result *models.ReferralCommission, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("commission level panic: %v", r)
		}
	}()
	eventID := credit.EventID
	err = tx.Transaction(func(sp *gorm.DB) error {
		if _, _, err := d.creditor.CreditInTx(sp, WalletMutation{
			UserID:     credit.BeneficiaryUserID,
			Amount:     credit.Amount,
			TxnType:    constants.WalletTxnTypeCommission,
			Reference:  buildCommissionReference(eventID, credit.Level),
			Remark:     fmt.Sprintf("L%d %s commission (%s)", credit.Level, credit.TriggerType, credit.TierName),
			KeyEventID: &eventID,
			Commission: true,
		}); err != nil {
			return err
		}
		commission := &models.ReferralCommission{
			KeyEventID:        eventID,
			BeneficiaryUserID: credit.BeneficiaryUserID,
			SourceUserID:      credit.SourceUserID,
			Level:             credit.Level,
			Amount:            credit.Amount,
			TierName:          credit.TierName,
			TriggerType:       credit.TriggerType,
			CreatedAt:         time.Now(),
		}
		if err := d.commissionRepo.WithTx(sp).CreateCommission(commission); err != nil {
			return wrapPersistence(err)
		}
		result = commission
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (d *CommissionDistributor) recordFailure(tx *gorm.DB, credit commissionCredit, cause error) *models.CommissionFailure {
	now := time.Now()
	failure := &models.CommissionFailure{
		KeyEventID:        credit.EventID,
		BeneficiaryUserID: credit.BeneficiaryUserID,
		SourceUserID:      credit.SourceUserID,
		Level:             credit.Level,
		Amount:            credit.Amount,
		TierName:          credit.TierName,
		TriggerType:       credit.TriggerType,
		Reason:            cause.Error(),
		Status:            constants.CommissionFailureStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := d.commissionRepo.WithTx(tx).CreateFailure(failure); err != nil {
		// 补发记录也写不进去时只能依赖日志人工处理
		logger.Errorw("commission_failure_record_failed",
			"event_id", credit.EventID,
			"beneficiary_user_id", credit.BeneficiaryUserID,
			"level", credit.Level,
			"amount", credit.Amount.String(),
			"error", err,
		)
		return nil
	}
	return failure
}

func buildCommissionReference(eventID uint, level int) string {
	return fmt.Sprintf("key_event:%d:commission:L%d", eventID, level)
}
