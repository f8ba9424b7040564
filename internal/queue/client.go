package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adreward-next/internal/config"
	"github.com/adreward-next/internal/constants"
	"github.com/adreward-next/internal/logger"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault

	defaultConcurrency = 10
	defaultMaxRetry    = 5
	defaultTaskTimeout = time.Minute
)

// Client 队列客户端封装，未启用时所有投递均为空操作
type Client struct {
	client   *asynq.Client
	queue    string
	maxRetry int
	timeout  time.Duration
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	c := &Client{queue: DefaultQueue, maxRetry: defaultMaxRetry, timeout: defaultTaskTimeout}
	if cfg == nil || !cfg.Enabled {
		return c, nil
	}
	if cfg.MaxRetry > 0 {
		c.maxRetry = cfg.MaxRetry
	}
	if cfg.TaskTimeoutSeconds > 0 {
		c.timeout = time.Duration(cfg.TaskTimeoutSeconds) * time.Second
	}
	c.client = asynq.NewClient(RedisOpt(cfg))
	return c, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

func (c *Client) taskOptions(extra ...asynq.Option) []asynq.Option {
	return append([]asynq.Option{
		asynq.Queue(c.queue),
		asynq.MaxRetry(c.maxRetry),
		asynq.Timeout(c.timeout),
	}, extra...)
}

// EnqueueCommissionReconcile 推送单条佣金补发任务，延迟执行以等待宿主事务可见。
// 同一条失败记录只会存在一个待执行任务。
func (c *Client) EnqueueCommissionReconcile(failureID uint, delay time.Duration) error {
	if !c.Enabled() || failureID == 0 {
		return nil
	}
	if delay < 0 {
		delay = 0
	}
	task, err := NewCommissionReconcileTask(CommissionReconcilePayload{FailureID: failureID})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(context.Background(), task, c.taskOptions(
		asynq.ProcessIn(delay),
		asynq.TaskID(reconcileTaskID(failureID)),
	)...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueueCommissionSweep 推送批量补发任务
func (c *Client) EnqueueCommissionSweep(opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewCommissionReconcileTask(CommissionReconcilePayload{Sweep: true})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(context.Background(), task, c.taskOptions(opts...)...)
	return err
}

func reconcileTaskID(failureID uint) string {
	return "commission_failure:" + strconv.FormatUint(uint64(failureID), 10)
}

// BuildServerConfig 生成队列服务配置，任务日志与失败回调接入全局 zap 日志
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency: defaultConcurrency,
		Queues:      map[string]int{DefaultQueue: 1},
		Logger:      logger.S(),
		LogLevel:    asynq.WarnLevel,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warnw("queue_task_failed",
				"task", task.Type(),
				"retried", retried,
				"max_retry", maxRetry,
				"error", err,
			)
		}),
	}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			serverCfg.Concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			serverCfg.Queues = cfg.Queues
		}
		if cfg.ShutdownTimeoutSeconds > 0 {
			serverCfg.ShutdownTimeout = time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second
		}
	}
	return RedisOpt(cfg), serverCfg
}

// RedisOpt 生成 asynq 使用的 Redis 连接参数
func RedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = fmt.Sprintf("%s:%d", host, port)
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
