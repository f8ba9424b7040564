package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adreward-next/internal/config"
	"github.com/adreward-next/internal/constants"
	"github.com/adreward-next/internal/models"
	"github.com/adreward-next/internal/queue"
	"github.com/adreward-next/internal/service"

	"github.com/hibiken/asynq"
)

type fakeReconciler struct {
	retried    []uint
	sweptLimit int
	sweeps     int
	retryErr   error
	sweepErr   error
	swept      chan struct{}
}

func (f *fakeReconciler) RetryFailure(failureID uint) (*models.CommissionFailure, error) {
	f.retried = append(f.retried, failureID)
	if f.retryErr != nil {
		return nil, f.retryErr
	}
	return &models.CommissionFailure{ID: failureID, Status: constants.CommissionFailureStatusResolved, Attempts: 1}, nil
}

func (f *fakeReconciler) RetryPending(limit int) (*service.ReconcileSummary, error) {
	f.sweeps++
	f.sweptLimit = limit
	if f.swept != nil {
		f.swept <- struct{}{}
	}
	if f.sweepErr != nil {
		return nil, f.sweepErr
	}
	return &service.ReconcileSummary{Scanned: 2, Resolved: 2}, nil
}

func newReconcileTask(t *testing.T, payload queue.CommissionReconcilePayload) *asynq.Task {
	t.Helper()
	task, err := queue.NewCommissionReconcileTask(payload)
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	return task
}

func TestHandleCommissionReconcileSingle(t *testing.T) {
	fake := &fakeReconciler{}
	consumer := newConsumer(fake, 20)

	if err := consumer.handleCommissionReconcile(context.Background(), newReconcileTask(t, queue.CommissionReconcilePayload{FailureID: 7})); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(fake.retried) != 1 || fake.retried[0] != 7 {
		t.Fatalf("expected retry of failure 7, got %v", fake.retried)
	}
	if fake.sweeps != 0 {
		t.Fatalf("single retry must not sweep")
	}
}

func TestHandleCommissionReconcileSweep(t *testing.T) {
	fake := &fakeReconciler{}
	consumer := newConsumer(fake, 20)

	if err := consumer.handleCommissionReconcile(context.Background(), newReconcileTask(t, queue.CommissionReconcilePayload{Sweep: true})); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if fake.sweeps != 1 || fake.sweptLimit != 20 {
		t.Fatalf("expected one sweep with limit 20, got sweeps=%d limit=%d", fake.sweeps, fake.sweptLimit)
	}
}

func TestHandleCommissionReconcileErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "closed failure is dropped", err: service.ErrCommissionFailureClosed, wantErr: false},
		{name: "missing failure is dropped", err: service.ErrCommissionFailureNotFound, wantErr: false},
		{name: "persistence error retries", err: errors.New("db down"), wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			consumer := newConsumer(&fakeReconciler{retryErr: tc.err}, 10)
			err := consumer.handleCommissionReconcile(context.Background(), newReconcileTask(t, queue.CommissionReconcilePayload{FailureID: 3}))
			if (err != nil) != tc.wantErr {
				t.Fatalf("wantErr=%v got %v", tc.wantErr, err)
			}
		})
	}
}

func TestHandleCommissionReconcileBadPayload(t *testing.T) {
	fake := &fakeReconciler{}
	consumer := newConsumer(fake, 10)

	err := consumer.handleCommissionReconcile(context.Background(), asynq.NewTask(queue.TaskCommissionReconcile, []byte("{bad")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected skip retry, got %v", err)
	}
	if err := consumer.handleCommissionReconcile(context.Background(), newReconcileTask(t, queue.CommissionReconcilePayload{})); err != nil {
		t.Fatalf("empty payload should be ignored, got %v", err)
	}
	if len(fake.retried) != 0 || fake.sweeps != 0 {
		t.Fatalf("invalid payloads must not reach the reconciler")
	}
}

func TestConsumerRegisterNil(t *testing.T) {
	var consumer *Consumer
	consumer.Register(asynq.NewServeMux())
	if NewConsumer(nil) != nil {
		t.Fatalf("nil container should yield nil consumer")
	}
}

func TestSweeperServiceRunsUntilCancelled(t *testing.T) {
	fake := &fakeReconciler{}
	sweeper, err := NewSweeperService(config.CommissionConfig{ReconcileIntervalSeconds: 1}, newConsumer(fake, 5))
	if err != nil {
		t.Fatalf("new sweeper failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Start(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("start should exit cleanly, got %v", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := sweeper.Stop(stopCtx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if fake.sweeps > 1 {
		t.Fatalf("expected at most the initial sweep, got %d", fake.sweeps)
	}
	if _, err := NewSweeperService(config.CommissionConfig{}, nil); err == nil {
		t.Fatalf("expected error for nil consumer")
	}
}

func TestSweeperServiceSweepsOnStart(t *testing.T) {
	fake := &fakeReconciler{swept: make(chan struct{}, 1)}
	sweeper, err := NewSweeperService(config.CommissionConfig{ReconcileIntervalSeconds: 3600}, newConsumer(fake, 7))
	if err != nil {
		t.Fatalf("new sweeper failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sweeper.Start(ctx) }()

	select {
	case <-fake.swept:
	case <-time.After(2 * time.Second):
		t.Fatalf("initial sweep did not run")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("start should exit cleanly, got %v", err)
	}
	if fake.sweeps != 1 || fake.sweptLimit != 7 {
		t.Fatalf("expected one initial sweep with limit 7, got sweeps=%d limit=%d", fake.sweeps, fake.sweptLimit)
	}
}
