package router

import (
	"sort"
	"strings"

	"github.com/adreward-next/internal/authz"
	"github.com/adreward-next/internal/cache"
	"github.com/adreward-next/internal/config"
	adminhandlers "github.com/adreward-next/internal/http/handlers/admin"
	publichandlers "github.com/adreward-next/internal/http/handlers/public"
	"github.com/adreward-next/internal/http/response"
	"github.com/adreward-next/internal/logger"
	"github.com/adreward-next/internal/metrics"
	"github.com/adreward-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisClient := cache.Client()
	loginRule := LoginRateLimitRule(cfg.Security.LoginRateLimit, cache.Key("rate", "login"))
	registerRule := LoginRateLimitRule(cfg.Security.LoginRateLimit, cache.Key("rate", "register"))
	adminLoginRule := LoginRateLimitRule(cfg.Security.LoginRateLimit, cache.Key("rate", "admin_login"))
	keyActionLimit := RateLimitMiddleware(redisClient,
		LoginRateLimitRule(cfg.Security.KeyActionRateLimit, cache.Key("rate", "key_action")),
		KeyByUser)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	if cfg.Metrics.Enabled {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, metrics.Handler())
	}

	apiV1 := r.Group("/api/v1")
	{
		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", RateLimitMiddleware(redisClient, registerRule, KeyByIP), publicHandler.Register)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.Login)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.GetMe)
			user.PUT("/me/profile", publicHandler.UpdateProfile)
			user.PUT("/me/password", publicHandler.ChangePassword)
			user.POST("/me/referrer", publicHandler.BindReferrer)

			// 激活码
			user.GET("/me/key", publicHandler.GetMyKey)
			user.POST("/keys/purchase", keyActionLimit, publicHandler.PurchaseKey)
			user.POST("/me/key/renew", keyActionLimit, publicHandler.RenewKey)
			user.POST("/me/key/withdraw", keyActionLimit, publicHandler.WithdrawWithKey)
			user.GET("/me/withdraws", publicHandler.ListMyWithdraws)

			// 钱包与推荐
			user.GET("/me/wallet", publicHandler.GetMyWallet)
			user.GET("/me/wallet/transactions", publicHandler.GetMyWalletTransactions)
			user.GET("/me/commissions", publicHandler.ListMyCommissions)
			user.GET("/me/referrals", publicHandler.ListMyReferrals)
			user.GET("/me/referral-overview", publicHandler.GetReferralOverview)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.GET("/me", adminHandler.GetAdminMe)
				authorized.PUT("/password", adminHandler.ChangeAdminPassword)
				authorized.GET("/admins", adminHandler.ListAdmins)
				authorized.POST("/admins", adminHandler.CreateAdmin)
				authorized.PUT("/admins/:id/role", adminHandler.SetAdminRole)

				// 佣金档位
				authorized.GET("/tiers", adminHandler.ListTiers)
				authorized.POST("/tiers", adminHandler.CreateTier)
				authorized.PUT("/tiers/:id", adminHandler.UpdateTier)
				authorized.PUT("/tiers/:id/active", adminHandler.SetTierActive)

				// 激活码
				authorized.GET("/keys", adminHandler.ListKeys)
				authorized.POST("/keys", adminHandler.CreateKeys)
				authorized.POST("/keys/assign", adminHandler.AssignKey)
				authorized.POST("/keys/pause", adminHandler.PauseKey)

				// 用户钱包
				authorized.GET("/users/:id/wallet", adminHandler.GetUserWallet)
				authorized.GET("/users/:id/wallet/transactions", adminHandler.GetUserWalletTransactions)
				authorized.POST("/users/:id/wallet/adjust", adminHandler.AdjustUserWallet)
				authorized.GET("/users/:id/wallet/verify", adminHandler.VerifyUserLedger)

				// 提现审核
				authorized.GET("/withdraws", adminHandler.ListWithdraws)
				authorized.POST("/withdraws/:id/review", adminHandler.ReviewWithdraw)

				// 佣金与补发
				authorized.GET("/commissions", adminHandler.ListCommissions)
				authorized.GET("/commission-failures", adminHandler.ListCommissionFailures)
				authorized.POST("/commission-failures/:id/retry", adminHandler.RetryCommissionFailure)
				authorized.POST("/commission-failures/sweep", adminHandler.SweepCommissionFailures)

				// 权限管理
				authorized.GET("/authz/roles", adminHandler.ListRoles)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantRolePolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeRolePolicy)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "ok", "redis": "disabled"}
		if cache.Enabled() {
			status["redis"] = "ok"
			if err := cache.Ping(c.Request.Context()); err != nil {
				status["status"] = "degraded"
				status["redis"] = err.Error()
			}
		}
		c.JSON(200, status)
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
