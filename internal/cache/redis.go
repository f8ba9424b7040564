package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/adreward-next/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "adr"
	pingTimeout   = 3 * time.Second
)

// store 进程内共享的 Redis 连接，未启用或不可达时为空，调用方按无缓存处理
var store struct {
	sync.RWMutex
	client *redis.Client
	prefix string
}

func current() (*redis.Client, string) {
	store.RLock()
	defer store.RUnlock()
	prefix := store.prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return store.client, prefix
}

func install(client *redis.Client, prefix string) {
	store.Lock()
	defer store.Unlock()
	store.client = client
	store.prefix = strings.TrimSpace(prefix)
}

// InitRedis 初始化 Redis 客户端，Ping 失败时降级为无缓存并返回错误
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		install(nil, "")
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		install(nil, cfg.Prefix)
		return fmt.Errorf("redis ping %s failed: %w", client.Options().Addr, err)
	}
	install(client, cfg.Prefix)
	return nil
}

// Enabled 判断缓存是否可用
func Enabled() bool {
	client, _ := current()
	return client != nil
}

// Client 获取 Redis 客户端，未启用时返回 nil
func Client() *redis.Client {
	client, _ := current()
	return client
}

// Key 拼接带全局前缀的缓存 key
func Key(parts ...string) string {
	_, prefix := current()
	segments := make([]string, 0, len(parts)+1)
	segments = append(segments, prefix)
	for _, part := range parts {
		if trimmed := strings.Trim(strings.TrimSpace(part), ":"); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return strings.Join(segments, ":")
}

// GetJSON 读取 JSON 缓存，未命中返回 false
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	client, _ := current()
	if client == nil {
		return false, nil
	}
	raw, err := client.Get(ctx, Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	client, _ := current()
	if client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return client.Set(ctx, Key(key), payload, ttl).Err()
}

// Del 删除缓存
func Del(ctx context.Context, key string) error {
	client, _ := current()
	if client == nil {
		return nil
	}
	return client.Del(ctx, Key(key)).Err()
}

// Ping 检查 Redis 连通性，未启用时返回 nil
func Ping(ctx context.Context) error {
	client, _ := current()
	if client == nil {
		return nil
	}
	return client.Ping(ctx).Err()
}

// Close 关闭 Redis 客户端
func Close() error {
	client, prefix := current()
	if client == nil {
		return nil
	}
	install(nil, prefix)
	return client.Close()
}
