package worker

import (
	"context"
	"errors"
	"time"

	"github.com/adreward-next/internal/config"
	"github.com/adreward-next/internal/logger"
)

// SweeperService 未启用队列时在进程内定时补发佣金
type SweeperService struct {
	consumer *Consumer
	interval time.Duration
	stopped  chan struct{}
}

// NewSweeperService 创建进程内补发服务
func NewSweeperService(commissionCfg config.CommissionConfig, consumer *Consumer) (*SweeperService, error) {
	if consumer == nil || consumer.reconciler == nil {
		return nil, errors.New("consumer is nil")
	}
	normalized := commissionCfg.Normalize()
	return &SweeperService{
		consumer: consumer,
		interval: time.Duration(normalized.ReconcileIntervalSeconds) * time.Second,
		stopped:  make(chan struct{}),
	}, nil
}

// Name 服务名称
func (s *SweeperService) Name() string {
	return "commission_sweeper"
}

// Start 启动时先扫描一轮，随后按间隔运行直到 ctx 结束
func (s *SweeperService) Start(ctx context.Context) error {
	if s == nil || s.consumer == nil {
		return errors.New("sweeper not initialized")
	}
	defer close(s.stopped)
	if ctx.Err() != nil {
		return nil
	}
	s.runOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *SweeperService) runOnce() {
	if err := s.consumer.sweep(); err != nil {
		logger.Warnw("commission_sweeper_run_failed", "error", err)
	}
}

// Stop 等待当前一轮补发结束
func (s *SweeperService) Stop(ctx context.Context) error {
	if s == nil || s.stopped == nil {
		return nil
	}
	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
