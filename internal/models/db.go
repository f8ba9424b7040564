package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adreward-next/internal/logger"

	"github.com/glebarez/sqlite" // 纯 Go SQLite 驱动（基于 modernc.org/sqlite）
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// DBPoolConfig 数据库连接池配置
type DBPoolConfig struct {
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeSeconds int
	ConnMaxIdleTimeSeconds int
}

// DBOptions 数据库初始化参数
type DBOptions struct {
	Driver        string
	DSN           string
	Pool          DBPoolConfig
	LogLevel      string // silent / error / warn / info
	SlowQueryMs   int
	SQLiteTimeout int // busy_timeout 毫秒
}

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

// NormalizeDriver 统一驱动名称，空值视为 sqlite
func NormalizeDriver(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return driverSQLite, nil
	case "postgres", "postgresql", "pg":
		return driverPostgres, nil
	}
	return "", fmt.Errorf("unsupported database driver: %s", driver)
}

// InitDB 初始化全局数据库连接
func InitDB(opts DBOptions) error {
	db, err := OpenDB(opts)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// OpenDB 按配置打开数据库并设置连接池
func OpenDB(opts DBOptions) (*gorm.DB, error) {
	driver, err := NormalizeDriver(opts.Driver)
	if err != nil {
		return nil, err
	}
	var dialector gorm.Dialector
	switch driver {
	case driverSQLite:
		dsn, err := prepareSQLiteDSN(opts.DSN, opts.SQLiteTimeout)
		if err != nil {
			return nil, err
		}
		dialector = sqlite.Open(dsn)
	case driverPostgres:
		if strings.TrimSpace(opts.DSN) == "" {
			return nil, errors.New("postgres dsn is required")
		}
		dialector = postgres.Open(opts.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(opts.LogLevel, opts.SlowQueryMs),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database failed: %w", driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	pool := opts.Pool
	// 内存库在最后一个连接关闭时即被销毁，至少保留一个空闲连接
	if driver == driverSQLite && isSQLiteMemoryDSN(opts.DSN) && pool.MaxIdleConns < 1 {
		pool.MaxIdleConns = 1
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
	}
	if pool.ConnMaxIdleTimeSeconds > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTimeSeconds) * time.Second)
	}
	return db, nil
}

// CloseDB 关闭全局连接
func CloseDB() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isSQLiteMemoryDSN(dsn string) bool {
	dsn = strings.TrimSpace(dsn)
	return strings.Contains(dsn, "mode=memory") || strings.HasPrefix(dsn, ":memory:")
}

// prepareSQLiteDSN 创建数据库文件所在目录，文件库未显式配置时追加 busy_timeout
func prepareSQLiteDSN(dsn string, busyTimeoutMs int) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", errors.New("sqlite dsn is required")
	}
	if isSQLiteMemoryDSN(dsn) {
		return dsn, nil
	}
	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create sqlite dir failed: %w", err)
		}
	}
	if busyTimeoutMs <= 0 || strings.Contains(dsn, "busy_timeout") {
		return dsn, nil
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", dsn, sep, busyTimeoutMs), nil
}

func newGormLogger(level string, slowQueryMs int) gormlogger.Interface {
	logLevel := gormlogger.Warn
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		logLevel = gormlogger.Silent
	case "error":
		logLevel = gormlogger.Error
	case "info":
		logLevel = gormlogger.Info
	}
	slow := 200 * time.Millisecond
	if slowQueryMs > 0 {
		slow = time.Duration(slowQueryMs) * time.Millisecond
	}
	return gormlogger.New(
		logger.StdLogger(),
		gormlogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// AllModels 需要迁移的全部表
func AllModels() []interface{} {
	return []interface{}{
		&Admin{},
		&User{},
		&WalletAccount{},
		&WalletTransaction{},
		&CommissionTier{},
		&ActivationKey{},
		&KeyEvent{},
		&ReferralCommission{},
		&CommissionFailure{},
		&WithdrawRequest{},
	}
}

// AutoMigrate 自动迁移所有数据库表
func AutoMigrate() error {
	if DB == nil {
		return errors.New("database is not initialized")
	}
	return DB.AutoMigrate(AllModels()...)
}
