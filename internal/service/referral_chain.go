package service

import (
	"github.com/adreward-next/internal/config"
	"github.com/adreward-next/internal/logger"
	"github.com/adreward-next/internal/repository"

	"gorm.io/gorm"
)

// ChainEntry 推荐链上的一级上级，Level 从 1 开始
type ChainEntry struct {
	UserID uint `json:"user_id"`
	Level  int  `json:"level"`
}

// ReferralChainBuilder 沿 referred_by 向上构建推荐链
type ReferralChainBuilder struct {
	userRepo repository.UserRepository
	maxDepth int
}

// NewReferralChainBuilder 创建推荐链构建器，层级上限不超过 6
func NewReferralChainBuilder(userRepo repository.UserRepository, maxDepth int) *ReferralChainBuilder {
	if maxDepth <= 0 || maxDepth > config.MaxReferralDepth {
		maxDepth = config.MaxReferralDepth
	}
	return &ReferralChainBuilder{userRepo: userRepo, maxDepth: maxDepth}
}

// BuildChain 以 startReferrerID 为第 1 级向上遍历。
// 遇到用户不存在、无上级、环路或 exclude 中的用户时提前结束。
func (b *ReferralChainBuilder) BuildChain(tx *gorm.DB, startReferrerID uint, exclude ...uint) ([]ChainEntry, error) {
	chain := make([]ChainEntry, 0, b.maxDepth)
	if startReferrerID == 0 {
		return chain, nil
	}
	visited := make(map[uint]struct{}, b.maxDepth+len(exclude))
	for _, id := range exclude {
		if id != 0 {
			visited[id] = struct{}{}
		}
	}
	repo := b.userRepo.WithTx(tx)
	current := startReferrerID
	for level := 1; level <= b.maxDepth && current != 0; level++ {
		if _, seen := visited[current]; seen {
			logger.Warnw("referral_chain_cycle_detected",
				"start_referrer_id", startReferrerID,
				"user_id", current,
				"level", level,
			)
			break
		}
		user, err := repo.GetByID(current)
		if err != nil {
			return nil, wrapPersistence(err)
		}
		if user == nil {
			break
		}
		visited[current] = struct{}{}
		chain = append(chain, ChainEntry{UserID: user.ID, Level: level})
		if user.ReferredBy == nil {
			break
		}
		current = *user.ReferredBy
	}
	return chain, nil
}
