package config

import (
	"fmt"
	"strings"

	"github.com/adreward-next/internal/logger"
	"github.com/adreward-next/internal/models"

	"github.com/spf13/viper"
)

// MaxReferralDepth 推荐链最大层级（固定 6 级）
const MaxReferralDepth = 6

// Config 应用配置结构
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	UserJWT    JWTConfig        `mapstructure:"user_jwt"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Queue      QueueConfig      `mapstructure:"queue"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Security   SecurityConfig   `mapstructure:"security"`
	Commission CommissionConfig `mapstructure:"commission"`
	Wallet     WalletConfig     `mapstructure:"wallet"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	Level      string `mapstructure:"level"`  // 为空时按 server.mode 推断
	Stdout     bool   `mapstructure:"stdout"` // release 模式下同时输出到标准输出
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
		Level:      c.Level,
		Stdout:     c.Stdout,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver        string             `mapstructure:"driver"`          // 数据库驱动（sqlite/postgres）
	DSN           string             `mapstructure:"dsn"`             // 数据库连接串
	LogLevel      string             `mapstructure:"log_level"`       // SQL 日志级别
	SlowQueryMs   int                `mapstructure:"slow_query_ms"`   // 慢查询阈值
	BusyTimeoutMs int                `mapstructure:"busy_timeout_ms"` // SQLite 锁等待
	Pool          DatabasePoolConfig `mapstructure:"pool"`
}

// ToDBOptions 转换为数据库初始化参数
func (c DatabaseConfig) ToDBOptions() models.DBOptions {
	return models.DBOptions{
		Driver:        c.Driver,
		DSN:           c.DSN,
		LogLevel:      c.LogLevel,
		SlowQueryMs:   c.SlowQueryMs,
		SQLiteTimeout: c.BusyTimeoutMs,
		Pool: models.DBPoolConfig{
			MaxOpenConns:           c.Pool.MaxOpenConns,
			MaxIdleConns:           c.Pool.MaxIdleConns,
			ConnMaxLifetimeSeconds: c.Pool.ConnMaxLifetimeSeconds,
			ConnMaxIdleTimeSeconds: c.Pool.ConnMaxIdleTimeSeconds,
		},
	}
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`

	MaxRetry               int `mapstructure:"max_retry"`                // 单任务最大重试次数
	TaskTimeoutSeconds     int `mapstructure:"task_timeout_seconds"`     // 单任务执行超时
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"` // 优雅停机等待
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit     LoginRateLimitConfig `mapstructure:"login_rate_limit"`
	KeyActionRateLimit LoginRateLimitConfig `mapstructure:"key_action_rate_limit"` // 购买/续费/提现
	PasswordPolicy     PasswordPolicyConfig `mapstructure:"password_policy"`
}

// LoginRateLimitConfig 登录限流配置
type LoginRateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// PasswordPolicyConfig 密码策略配置
type PasswordPolicyConfig struct {
	MinLength     int  `mapstructure:"min_length"`
	RequireLetter bool `mapstructure:"require_letter"`
	RequireNumber bool `mapstructure:"require_number"`
}

// CommissionConfig 佣金分发与对账配置
type CommissionConfig struct {
	MaxDepth                 int `mapstructure:"max_depth"`
	TierCacheTTLSeconds      int `mapstructure:"tier_cache_ttl_seconds"`
	ReconcileIntervalSeconds int `mapstructure:"reconcile_interval_seconds"`
	ReconcileBatchSize       int `mapstructure:"reconcile_batch_size"`
	ReconcileMaxAttempts     int `mapstructure:"reconcile_max_attempts"`
}

// Normalize 修正非法取值，层级固定不超过 6 级
func (c CommissionConfig) Normalize() CommissionConfig {
	if c.MaxDepth <= 0 || c.MaxDepth > MaxReferralDepth {
		c.MaxDepth = MaxReferralDepth
	}
	if c.TierCacheTTLSeconds < 0 {
		c.TierCacheTTLSeconds = 0
	}
	if c.ReconcileIntervalSeconds <= 0 {
		c.ReconcileIntervalSeconds = 300
	}
	if c.ReconcileBatchSize <= 0 {
		c.ReconcileBatchSize = 50
	}
	if c.ReconcileMaxAttempts <= 0 {
		c.ReconcileMaxAttempts = 5
	}
	return c
}

// WalletConfig 钱包配置
type WalletConfig struct {
	Currency string `mapstructure:"currency"`
}

// MetricsConfig 指标暴露配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	setDefaults(viper.GetViper())

	// 环境变量支持（例如 commission.max_depth -> COMMISSION_MAX_DEPTH）
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	cfg.Commission = cfg.Commission.Normalize()
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "adreward.log")
	v.SetDefault("log.level", "")
	v.SetDefault("log.stdout", false)
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/adreward.db")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.slow_query_ms", 200)
	v.SetDefault("database.busy_timeout_ms", 5000)
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("user_jwt.secret", "user-change-me-in-production")
	v.SetDefault("user_jwt.expire_hours", 168)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "adr")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.max_retry", 5)
	v.SetDefault("queue.task_timeout_seconds", 60)
	v.SetDefault("queue.shutdown_timeout_seconds", 8)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.login_rate_limit.window_seconds", 300)
	v.SetDefault("security.login_rate_limit.max_attempts", 5)
	v.SetDefault("security.login_rate_limit.block_seconds", 900)
	v.SetDefault("security.key_action_rate_limit.window_seconds", 60)
	v.SetDefault("security.key_action_rate_limit.max_attempts", 10)
	v.SetDefault("security.key_action_rate_limit.block_seconds", 0)
	v.SetDefault("security.password_policy.min_length", 8)
	v.SetDefault("security.password_policy.require_letter", true)
	v.SetDefault("security.password_policy.require_number", true)
	v.SetDefault("commission.max_depth", MaxReferralDepth)
	v.SetDefault("commission.tier_cache_ttl_seconds", 60)
	v.SetDefault("commission.reconcile_interval_seconds", 300)
	v.SetDefault("commission.reconcile_batch_size", 50)
	v.SetDefault("commission.reconcile_max_attempts", 5)
	v.SetDefault("wallet.currency", "INR")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
