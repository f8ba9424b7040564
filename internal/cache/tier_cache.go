package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/adreward-next/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	activeTiersKey        = "commission:tiers:active"
	activeTiersVersionKey = "commission:tiers:version"
)

// TierStore 启用佣金档位快照缓存。
// 快照按版本号存放，失效时只递增版本号，旧版本快照随 TTL 过期。
type TierStore struct{}

// NewTierStore 创建档位缓存
func NewTierStore() *TierStore {
	return &TierStore{}
}

// ActiveTiersVersion 读取当前快照版本，从未失效过时为 0
func (s *TierStore) ActiveTiersVersion(ctx context.Context) (int64, error) {
	client := Client()
	if client == nil {
		return 0, nil
	}
	version, err := client.Get(ctx, Key(activeTiersVersionKey)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}

// GetActiveTiers 读取指定版本的启用档位快照，未命中或缓存关闭时返回 false
func (s *TierStore) GetActiveTiers(ctx context.Context, version int64) ([]models.CommissionTier, bool, error) {
	var tiers []models.CommissionTier
	hit, err := GetJSON(ctx, activeTiersSnapshotKey(version), &tiers)
	if err != nil || !hit {
		return nil, false, err
	}
	return tiers, true, nil
}

// SetActiveTiers 写入指定版本的启用档位快照
func (s *TierStore) SetActiveTiers(ctx context.Context, version int64, tiers []models.CommissionTier, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return SetJSON(ctx, activeTiersSnapshotKey(version), tiers, ttl)
}

// InvalidateActiveTiers 档位变更后递增版本号
func (s *TierStore) InvalidateActiveTiers(ctx context.Context) error {
	client := Client()
	if client == nil {
		return nil
	}
	return client.Incr(ctx, Key(activeTiersVersionKey)).Err()
}

func activeTiersSnapshotKey(version int64) string {
	return activeTiersKey + ":v" + strconv.FormatInt(version, 10)
}
