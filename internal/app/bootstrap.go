package app

import (
	"errors"

	"github.com/adreward-next/internal/cache"
	"github.com/adreward-next/internal/config"
	"github.com/adreward-next/internal/logger"
	"github.com/adreward-next/internal/models"
	"github.com/adreward-next/internal/provider"
	"github.com/adreward-next/internal/router"
	"github.com/adreward-next/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if !isKnownMode(mode) {
		return nil, errors.New("unknown mode: " + mode)
	}

	container := provider.NewContainer(cfg)

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}

	// 初始化补发服务：进程内定时扫描，启用队列时额外消费 asynq 任务
	if mode == ModeAll || mode == ModeWorker {
		consumer := worker.NewConsumer(container)
		sweeper, err := worker.NewSweeperService(cfg.Commission, consumer)
		if err != nil {
			return nil, err
		}
		services = append(services, sweeper)
		if cfg.Queue.Enabled {
			workerService, err := worker.NewService(&cfg.Queue, consumer)
			if err != nil {
				return nil, err
			}
			services = append(services, workerService)
		} else if mode == ModeWorker {
			logger.Warnw("app_worker_queue_disabled", "fallback", "in_process_sweeper")
		}
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	runner := NewRunner(services...)
	if container.QueueClient != nil {
		runner.AddCloser("queue_client", container.QueueClient.Close)
	}
	runner.AddCloser("redis", cache.Close)
	runner.AddCloser("database", models.CloseDB)
	return runner, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode, "queue_enabled", opts.Config.Queue.Enabled)
	return RunWithOptions(runner, opts)
}
