package service

import (
	"errors"
	"time"

	"github.com/adreward-next/internal/constants"
	"github.com/adreward-next/internal/logger"
	"github.com/adreward-next/internal/metrics"
	"github.com/adreward-next/internal/models"
	"github.com/adreward-next/internal/repository"

	"gorm.io/gorm"
)

const (
	defaultReconcileMaxAttempts = 5
	defaultReconcileBatchSize   = 100
)

// ReconcileService 佣金补发服务
type ReconcileService struct {
	commissionRepo repository.CommissionRepository
	distributor    *CommissionDistributor
	maxAttempts    int
}

// ReconcileSummary 批量补发结果
type ReconcileSummary struct {
	Scanned   int `json:"scanned"`
	Resolved  int `json:"resolved"`
	Pending   int `json:"pending"`
	Abandoned int `json:"abandoned"`
	Skipped   int `json:"skipped"`
}

// NewReconcileService 创建补发服务，maxAttempts<=0 时使用默认值
func NewReconcileService(commissionRepo repository.CommissionRepository, distributor *CommissionDistributor, maxAttempts int) *ReconcileService {
	if maxAttempts <= 0 {
		maxAttempts = defaultReconcileMaxAttempts
	}
	return &ReconcileService{
		commissionRepo: commissionRepo,
		distributor:    distributor,
		maxAttempts:    maxAttempts,
	}
}

// RetryFailure 补发单条失败佣金。
// 补发本身失败不返回错误，而是累加尝试次数，超过上限后标记为 abandoned。
func (s *ReconcileService) RetryFailure(failureID uint) (*models.CommissionFailure, error) {
	if failureID == 0 {
		return nil, ErrCommissionFailureNotFound
	}
	var updated *models.CommissionFailure
	err := s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.commissionRepo.WithTx(tx)
		failure, err := repo.GetFailureByIDForUpdate(failureID)
		if err != nil {
			return wrapPersistence(err)
		}
		if failure == nil {
			return ErrCommissionFailureNotFound
		}
		if failure.Status != constants.CommissionFailureStatusPending {
			return ErrCommissionFailureClosed
		}

		now := time.Now()
		failure.Attempts++
		failure.UpdatedAt = now
		if _, err := s.distributor.applyCredit(tx, creditFromFailure(failure)); err != nil {
			failure.Reason = err.Error()
			if failure.Attempts >= s.maxAttempts {
				failure.Status = constants.CommissionFailureStatusAbandoned
			}
			logger.Warnw("commission_reconcile_attempt_failed",
				"failure_id", failure.ID,
				"event_id", failure.KeyEventID,
				"beneficiary_user_id", failure.BeneficiaryUserID,
				"level", failure.Level,
				"attempts", failure.Attempts,
				"status", failure.Status,
				"error", err,
			)
		} else {
			failure.Status = constants.CommissionFailureStatusResolved
			failure.ResolvedAt = &now
		}
		if err := repo.UpdateFailure(failure); err != nil {
			return wrapPersistence(err)
		}
		updated = failure
		return nil
	})
	if err != nil {
		return nil, wrapPersistence(err)
	}
	metrics.CommissionReconciled.WithLabelValues(updated.Status).Inc()
	return updated, nil
}

// RetryPending 批量补发待处理记录
func (s *ReconcileService) RetryPending(limit int) (*ReconcileSummary, error) {
	if limit <= 0 {
		limit = defaultReconcileBatchSize
	}
	ids, err := s.commissionRepo.ListPendingFailureIDs(limit)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	summary := &ReconcileSummary{Scanned: len(ids)}
	for _, id := range ids {
		failure, err := s.RetryFailure(id)
		if err != nil {
			if errors.Is(err, ErrCommissionFailureClosed) || errors.Is(err, ErrCommissionFailureNotFound) {
				summary.Skipped++
				continue
			}
			return summary, err
		}
		switch failure.Status {
		case constants.CommissionFailureStatusResolved:
			summary.Resolved++
		case constants.CommissionFailureStatusAbandoned:
			summary.Abandoned++
		default:
			summary.Pending++
		}
	}
	return summary, nil
}

// ListFailures 查询补发记录
func (s *ReconcileService) ListFailures(filter repository.CommissionFailureListFilter) ([]models.CommissionFailure, int64, error) {
	rows, total, err := s.commissionRepo.ListFailures(filter)
	if err != nil {
		return nil, 0, wrapPersistence(err)
	}
	return rows, total, nil
}
