package repository

import (
	"errors"

	"github.com/adreward-next/internal/models"

	"gorm.io/gorm"
)

// CommissionTierRepository 佣金档位数据访问接口
type CommissionTierRepository interface {
	WithTx(tx *gorm.DB) CommissionTierRepository
	GetByID(id uint) (*models.CommissionTier, error)
	ListActive() ([]models.CommissionTier, error)
	List(filter CommissionTierListFilter) ([]models.CommissionTier, int64, error)
	Create(tier *models.CommissionTier) error
	Update(tier *models.CommissionTier) error
}

// GormCommissionTierRepository GORM 实现
type GormCommissionTierRepository struct {
	db *gorm.DB
}

// NewCommissionTierRepository 创建佣金档位仓储
func NewCommissionTierRepository(db *gorm.DB) *GormCommissionTierRepository {
	return &GormCommissionTierRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionTierRepository) WithTx(tx *gorm.DB) CommissionTierRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionTierRepository{db: tx}
}

// GetByID 按ID获取档位
func (r *GormCommissionTierRepository) GetByID(id uint) (*models.CommissionTier, error) {
	if id == 0 {
		return nil, nil
	}
	var tier models.CommissionTier
	if err := r.db.First(&tier, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

// ListActive 获取全部启用档位
func (r *GormCommissionTierRepository) ListActive() ([]models.CommissionTier, error) {
	var tiers []models.CommissionTier
	if err := r.db.Where("is_active = ?", true).Order("min_price ASC, id ASC").Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

// List 分页查询档位
func (r *GormCommissionTierRepository) List(filter CommissionTierListFilter) ([]models.CommissionTier, int64, error) {
	query := r.db.Model(&models.CommissionTier{})
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	return findPage[models.CommissionTier](query, filter.Page, filter.PageSize, "min_price ASC, id ASC")
}

// Create 创建档位
func (r *GormCommissionTierRepository) Create(tier *models.CommissionTier) error {
	return r.db.Create(tier).Error
}

// Update 更新档位
func (r *GormCommissionTierRepository) Update(tier *models.CommissionTier) error {
	return r.db.Save(tier).Error
}
