package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/adreward-next/internal/logger"
	"github.com/adreward-next/internal/models"
	"github.com/adreward-next/internal/provider"
	"github.com/adreward-next/internal/queue"
	"github.com/adreward-next/internal/service"

	"github.com/hibiken/asynq"
)

// CommissionReconciler 佣金补发能力
type CommissionReconciler interface {
	RetryFailure(failureID uint) (*models.CommissionFailure, error)
	RetryPending(limit int) (*service.ReconcileSummary, error)
}

// Consumer 异步任务消费者
type Consumer struct {
	reconciler CommissionReconciler
	batchSize  int
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil {
		return nil
	}
	batchSize := 0
	if c.Config != nil {
		batchSize = c.Config.Commission.Normalize().ReconcileBatchSize
	}
	return newConsumer(c.ReconcileService, batchSize)
}

func newConsumer(reconciler CommissionReconciler, batchSize int) *Consumer {
	return &Consumer{
		reconciler: reconciler,
		batchSize:  batchSize,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCommissionReconcile, c.handleCommissionReconcile)
}

func (c *Consumer) handleCommissionReconcile(_ context.Context, task *asynq.Task) error {
	if c == nil || c.reconciler == nil || task == nil {
		logger.Debugw("worker_commission_reconcile_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseCommissionReconcilePayload(task)
	if err != nil {
		logger.Warnw("worker_commission_reconcile_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if payload.Sweep {
		return c.sweep()
	}
	if payload.FailureID == 0 {
		logger.Debugw("worker_commission_reconcile_skip_invalid_payload", "failure_id", payload.FailureID)
		return nil
	}

	failure, err := c.reconciler.RetryFailure(payload.FailureID)
	if err != nil {
		if errors.Is(err, service.ErrCommissionFailureNotFound) || errors.Is(err, service.ErrCommissionFailureClosed) {
			logger.Debugw("worker_commission_reconcile_skip_closed", "failure_id", payload.FailureID, "error", err)
			return nil
		}
		logger.Warnw("worker_commission_reconcile_failed", "failure_id", payload.FailureID, "error", err)
		return err
	}
	logger.Infow("worker_commission_reconcile_done",
		"failure_id", failure.ID,
		"status", failure.Status,
		"attempts", failure.Attempts,
	)
	return nil
}

func (c *Consumer) sweep() error {
	summary, err := c.reconciler.RetryPending(c.batchSize)
	if err != nil {
		logger.Warnw("worker_commission_sweep_failed", "error", err)
		return err
	}
	if summary != nil && summary.Scanned > 0 {
		logger.Infow("worker_commission_sweep_done",
			"scanned", summary.Scanned,
			"resolved", summary.Resolved,
			"pending", summary.Pending,
			"abandoned", summary.Abandoned,
			"skipped", summary.Skipped,
		)
	}
	return nil
}
