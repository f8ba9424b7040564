package service

import (
	"strconv"

	"github.com/adreward-next/internal/logger"
	"github.com/adreward-next/internal/metrics"
	"github.com/adreward-next/internal/models"

	"gorm.io/gorm"
)

// 佣金跳过原因
const (
	commissionSkipNoTier     = "no_tier"
	commissionSkipNoReferrer = "no_referrer"
	commissionSkipEmptyChain = "empty_chain"
)

// CommissionTrigger 佣金触发事件（购买、续费、后台分配共用）
type CommissionTrigger struct {
	EventID        uint
	TriggerType    string
	SourceUserID   uint // 发生购买/续费/分配的用户
	ReferrerUserID uint // SourceUser 的直接上级
	Price          models.Money
}

// CommissionPlan 已解析档位与推荐链，尚未落账
type CommissionPlan struct {
	Trigger    CommissionTrigger
	Tier       *models.CommissionTier
	Chain      []ChainEntry
	SkipReason string
}

// BeneficiaryIDs 返回会实际收到佣金的用户（佣金为 0 的层级不含）
func (p *CommissionPlan) BeneficiaryIDs() []uint {
	if p == nil || p.Tier == nil {
		return nil
	}
	ids := make([]uint, 0, len(p.Chain))
	for _, entry := range p.Chain {
		if p.Tier.RateForLevel(entry.Level).IsPositive() {
			ids = append(ids, entry.UserID)
		}
	}
	return ids
}

// CommissionOutcome 一次事件的分发结果
type CommissionOutcome struct {
	Plan        *CommissionPlan
	Commissions []models.ReferralCommission
	Failures    []models.CommissionFailure
}

// FailureIDs 返回本次写入的补发记录ID
func (o *CommissionOutcome) FailureIDs() []uint {
	if o == nil {
		return nil
	}
	ids := make([]uint, 0, len(o.Failures))
	for _, failure := range o.Failures {
		if failure.ID != 0 {
			ids = append(ids, failure.ID)
		}
	}
	return ids
}

// CommissionEngine 佣金引擎：解析档位、构建推荐链、分发佣金
type CommissionEngine struct {
	resolver    *TierResolver
	chain       *ReferralChainBuilder
	distributor *CommissionDistributor
	walletSvc   *WalletService
}

// NewCommissionEngine 创建佣金引擎
func NewCommissionEngine(resolver *TierResolver, chain *ReferralChainBuilder, distributor *CommissionDistributor, walletSvc *WalletService) *CommissionEngine {
	return &CommissionEngine{
		resolver:    resolver,
		chain:       chain,
		distributor: distributor,
		walletSvc:   walletSvc,
	}
}

// Plan 在宿主事务内解析档位与推荐链。
// 档位未命中不是错误，返回 SkipReason 非空的计划；查询失败返回错误，宿主事务应整体回滚。
func (e *CommissionEngine) Plan(tx *gorm.DB, trigger CommissionTrigger) (*CommissionPlan, error) {
	plan := &CommissionPlan{Trigger: trigger}
	if trigger.ReferrerUserID == 0 {
		plan.SkipReason = commissionSkipNoReferrer
		return plan, nil
	}
	tier, err := e.resolver.ResolveTier(tx, trigger.Price)
	if err != nil {
		return nil, err
	}
	if tier == nil {
		logger.Infow("commission_tier_not_found",
			"event_id", trigger.EventID,
			"trigger_type", trigger.TriggerType,
			"price", trigger.Price.String(),
		)
		plan.SkipReason = commissionSkipNoTier
		return plan, nil
	}
	plan.Tier = tier
	chain, err := e.chain.BuildChain(tx, trigger.ReferrerUserID, trigger.SourceUserID)
	if err != nil {
		return nil, err
	}
	plan.Chain = chain
	if len(chain) == 0 {
		plan.SkipReason = commissionSkipEmptyChain
	}
	return plan, nil
}

// Execute 按计划逐级分发佣金。必须在宿主事务内调用，且收佣账户已按升序加锁。
// 单级失败只回滚该级并写入补发记录，不影响宿主事务。
func (e *CommissionEngine) Execute(tx *gorm.DB, plan *CommissionPlan) *CommissionOutcome {
	outcome := &CommissionOutcome{Plan: plan}
	if plan == nil || plan.Tier == nil || len(plan.Chain) == 0 {
		return outcome
	}
	outcome.Commissions, outcome.Failures = e.distributor.Distribute(tx, plan)
	return outcome
}

// Process 解析、加锁并分发，供没有主账户变动需要一起加锁的调用方使用。
// 引擎不做去重，同一事件调用两次会分发两次。
func (e *CommissionEngine) Process(tx *gorm.DB, trigger CommissionTrigger) (*CommissionOutcome, error) {
	plan, err := e.Plan(tx, trigger)
	if err != nil {
		return nil, err
	}
	if err := e.walletSvc.LockAccountsInTx(tx, plan.BeneficiaryIDs()); err != nil {
		return nil, wrapPersistence(err)
	}
	return e.Execute(tx, plan), nil
}

// recordCommissionMetrics 在宿主事务提交后记录指标
func recordCommissionMetrics(outcome *CommissionOutcome) {
	if outcome == nil || outcome.Plan == nil {
		return
	}
	triggerType := outcome.Plan.Trigger.TriggerType
	if outcome.Plan.SkipReason != "" {
		metrics.CommissionSkipped.WithLabelValues(outcome.Plan.SkipReason).Inc()
	}
	for _, commission := range outcome.Commissions {
		metrics.ObserveCommissionPaid(triggerType, strconv.Itoa(commission.Level), commission.Amount.Decimal)
	}
	if len(outcome.Failures) > 0 {
		metrics.CommissionFailed.WithLabelValues(triggerType).Add(float64(len(outcome.Failures)))
	}
}
