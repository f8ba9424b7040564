package service

import (
	"context"
	"strings"
	"time"

	"github.com/adreward-next/internal/models"
	"github.com/adreward-next/internal/repository"
)

// TierService 佣金档位管理服务
type TierService struct {
	tierRepo repository.CommissionTierRepository
	resolver *TierResolver
}

// TierInput 档位写入参数
type TierInput struct {
	Name     string
	MinPrice models.Money
	MaxPrice models.Money
	Rates    []models.Money
	IsActive bool
}

// NewTierService 创建档位管理服务
func NewTierService(tierRepo repository.CommissionTierRepository, resolver *TierResolver) *TierService {
	return &TierService{tierRepo: tierRepo, resolver: resolver}
}

// ListTiers 分页查询档位
func (s *TierService) ListTiers(filter repository.CommissionTierListFilter) ([]models.CommissionTier, int64, error) {
	tiers, total, err := s.tierRepo.List(filter)
	if err != nil {
		return nil, 0, wrapPersistence(err)
	}
	return tiers, total, nil
}

// CreateTier 创建档位
func (s *TierService) CreateTier(input TierInput) (*models.CommissionTier, error) {
	tier := &models.CommissionTier{}
	if err := s.apply(tier, input); err != nil {
		return nil, err
	}
	now := time.Now()
	tier.CreatedAt = now
	tier.UpdatedAt = now
	if err := s.tierRepo.Create(tier); err != nil {
		return nil, wrapPersistence(err)
	}
	s.invalidate()
	return tier, nil
}

// UpdateTier 更新档位
func (s *TierService) UpdateTier(id uint, input TierInput) (*models.CommissionTier, error) {
	tier, err := s.tierRepo.GetByID(id)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	if tier == nil {
		return nil, ErrTierNotFound
	}
	if err := s.apply(tier, input); err != nil {
		return nil, err
	}
	tier.UpdatedAt = time.Now()
	if err := s.tierRepo.Update(tier); err != nil {
		return nil, wrapPersistence(err)
	}
	s.invalidate()
	return tier, nil
}

// SetTierActive 启用或停用档位，启用时重新校验区间重叠
func (s *TierService) SetTierActive(id uint, active bool) (*models.CommissionTier, error) {
	tier, err := s.tierRepo.GetByID(id)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	if tier == nil {
		return nil, ErrTierNotFound
	}
	if active {
		if err := s.checkOverlap(tier.ID, tier.MinPrice, tier.MaxPrice); err != nil {
			return nil, err
		}
	}
	tier.IsActive = active
	tier.UpdatedAt = time.Now()
	if err := s.tierRepo.Update(tier); err != nil {
		return nil, wrapPersistence(err)
	}
	s.invalidate()
	return tier, nil
}

func (s *TierService) apply(tier *models.CommissionTier, input TierInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ErrTierNameRequired
	}
	if err := validateTierRange(input.MinPrice, input.MaxPrice); err != nil {
		return err
	}
	if len(input.Rates) > 6 {
		return ErrTierRateInvalid
	}
	for _, rate := range input.Rates {
		if rate.IsNegative() {
			return ErrTierRateInvalid
		}
	}
	if input.IsActive {
		if err := s.checkOverlap(tier.ID, input.MinPrice, input.MaxPrice); err != nil {
			return err
		}
	}
	tier.Name = name
	tier.MinPrice = models.NewMoneyFromDecimal(input.MinPrice.Decimal)
	tier.MaxPrice = models.NewMoneyFromDecimal(input.MaxPrice.Decimal)
	tier.SetRates(input.Rates)
	tier.IsActive = input.IsActive
	return nil
}

func (s *TierService) checkOverlap(selfID uint, minPrice, maxPrice models.Money) error {
	active, err := s.tierRepo.ListActive()
	if err != nil {
		return wrapPersistence(err)
	}
	for _, other := range active {
		if other.ID == selfID {
			continue
		}
		if tierRangesOverlap(minPrice, maxPrice, other.MinPrice, other.MaxPrice) {
			return ErrTierOverlap
		}
	}
	return nil
}

func (s *TierService) invalidate() {
	if s.resolver != nil {
		s.resolver.Invalidate(context.Background())
	}
}

func validateTierRange(minPrice, maxPrice models.Money) error {
	if minPrice.IsNegative() || maxPrice.IsNegative() {
		return ErrTierRangeInvalid
	}
	if minPrice.Decimal.GreaterThan(maxPrice.Decimal) {
		return ErrTierRangeInvalid
	}
	return nil
}

// tierRangesOverlap 闭区间是否相交
func tierRangesOverlap(aMin, aMax, bMin, bMax models.Money) bool {
	return !aMax.Decimal.LessThan(bMin.Decimal) && !bMax.Decimal.LessThan(aMin.Decimal)
}
