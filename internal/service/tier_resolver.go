package service

import (
	"context"
	"time"

	"github.com/adreward-next/internal/logger"
	"github.com/adreward-next/internal/models"
	"github.com/adreward-next/internal/repository"

	"gorm.io/gorm"
)

// TierCache 启用档位快照缓存，快照按版本号读写，失效即递增版本号
type TierCache interface {
	ActiveTiersVersion(ctx context.Context) (int64, error)
	GetActiveTiers(ctx context.Context, version int64) ([]models.CommissionTier, bool, error)
	SetActiveTiers(ctx context.Context, version int64, tiers []models.CommissionTier, ttl time.Duration) error
	InvalidateActiveTiers(ctx context.Context) error
}

// TierResolver 按价格匹配唯一启用档位
type TierResolver struct {
	tierRepo repository.CommissionTierRepository
	cache    TierCache
	cacheTTL time.Duration
}

// NewTierResolver 创建档位解析器，cache 可为空
func NewTierResolver(tierRepo repository.CommissionTierRepository, cache TierCache, cacheTTL time.Duration) *TierResolver {
	return &TierResolver{
		tierRepo: tierRepo,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// ResolveTier 返回价格区间包含 price 的唯一启用档位。
// 无匹配或匹配多个时返回 nil，调用方应跳过佣金分发。
func (r *TierResolver) ResolveTier(tx *gorm.DB, price models.Money) (*models.CommissionTier, error) {
	tiers, err := r.activeTiers(tx)
	if err != nil {
		return nil, err
	}
	matched := matchTiers(tiers, price)
	if len(matched) > 1 {
		names := make([]string, 0, len(matched))
		for _, tier := range matched {
			names = append(names, tier.Name)
		}
		logger.Warnw("commission_tier_ambiguous", "price", price.String(), "tiers", names)
		return nil, nil
	}
	if len(matched) == 0 {
		return nil, nil
	}
	tier := matched[0]
	return &tier, nil
}

// Invalidate 档位写入后清理缓存
func (r *TierResolver) Invalidate(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateActiveTiers(ctx); err != nil {
		logger.Warnw("commission_tier_cache_invalidate_failed", "error", err)
	}
}

// activeTiers 未命中时回源并写回读取时的版本，期间发生的失效会让这份快照不再被读到
func (r *TierResolver) activeTiers(tx *gorm.DB) ([]models.CommissionTier, error) {
	ctx := context.Background()
	cached := r.cache != nil && r.cacheTTL > 0
	var version int64
	if cached {
		var err error
		version, err = r.cache.ActiveTiersVersion(ctx)
		if err != nil {
			logger.Warnw("commission_tier_cache_version_failed", "error", err)
			cached = false
		}
	}
	if cached {
		tiers, hit, err := r.cache.GetActiveTiers(ctx, version)
		if err != nil {
			logger.Warnw("commission_tier_cache_get_failed", "error", err)
		} else if hit {
			return tiers, nil
		}
	}
	tiers, err := r.tierRepo.WithTx(tx).ListActive()
	if err != nil {
		return nil, wrapPersistence(err)
	}
	if cached {
		if err := r.cache.SetActiveTiers(ctx, version, tiers, r.cacheTTL); err != nil {
			logger.Warnw("commission_tier_cache_set_failed", "error", err)
		}
	}
	return tiers, nil
}

func matchTiers(tiers []models.CommissionTier, price models.Money) []models.CommissionTier {
	matched := make([]models.CommissionTier, 0, 1)
	for i := range tiers {
		if !tiers[i].IsActive {
			continue
		}
		if tiers[i].Contains(price) {
			matched = append(matched, tiers[i])
		}
	}
	return matched
}
