package provider

import (
	"time"

	"github.com/adreward-next/internal/authz"
	"github.com/adreward-next/internal/cache"
	"github.com/adreward-next/internal/config"
	"github.com/adreward-next/internal/logger"
	"github.com/adreward-next/internal/models"
	"github.com/adreward-next/internal/queue"
	"github.com/adreward-next/internal/repository"
	"github.com/adreward-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo      repository.AdminRepository
	UserRepo       repository.UserRepository
	WalletRepo     repository.WalletRepository
	TierRepo       repository.CommissionTierRepository
	KeyRepo        repository.ActivationKeyRepository
	CommissionRepo repository.CommissionRepository
	WithdrawRepo   repository.WithdrawRepository

	// Services
	AuthzService           *authz.Service
	AuthService            *service.AuthService
	UserAuthService        *service.UserAuthService
	WalletService          *service.WalletService
	TierResolver           *service.TierResolver
	TierService            *service.TierService
	ReferralChain          *service.ReferralChainBuilder
	CommissionDistributor  *service.CommissionDistributor
	CommissionEngine       *service.CommissionEngine
	KeyService             *service.KeyService
	ReconcileService       *service.ReconcileService
	CommissionQueryService *service.CommissionQueryService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.WalletRepo = repository.NewWalletRepository(db)
	c.TierRepo = repository.NewCommissionTierRepository(db)
	c.KeyRepo = repository.NewActivationKeyRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.WithdrawRepo = repository.NewWithdrawRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	commissionCfg := c.Config.Commission.Normalize()
	tierTTL := time.Duration(commissionCfg.TierCacheTTLSeconds) * time.Second

	c.WalletService = service.NewWalletService(c.WalletRepo, c.Config.Wallet.Currency)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo, c.WalletRepo, c.WalletService)

	// 佣金链路：档位 -> 推荐链 -> 分发 -> 引擎
	c.TierResolver = service.NewTierResolver(c.TierRepo, cache.NewTierStore(), tierTTL)
	c.TierService = service.NewTierService(c.TierRepo, c.TierResolver)
	c.ReferralChain = service.NewReferralChainBuilder(c.UserRepo, commissionCfg.MaxDepth)
	c.CommissionDistributor = service.NewCommissionDistributor(c.WalletService, c.CommissionRepo)
	c.CommissionEngine = service.NewCommissionEngine(c.TierResolver, c.ReferralChain, c.CommissionDistributor, c.WalletService)

	c.KeyService = service.NewKeyService(c.KeyRepo, c.UserRepo, c.WalletRepo, c.WithdrawRepo, c.WalletService, c.CommissionEngine, c.QueueClient)
	c.ReconcileService = service.NewReconcileService(c.CommissionRepo, c.CommissionDistributor, commissionCfg.ReconcileMaxAttempts)
	c.CommissionQueryService = service.NewCommissionQueryService(c.CommissionRepo, c.UserRepo, c.WalletRepo)
}
