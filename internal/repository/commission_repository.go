package repository

import (
	"errors"

	"github.com/adreward-next/internal/constants"
	"github.com/adreward-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionRepository 佣金记录与补发记录数据访问接口
type CommissionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CommissionRepository

	CreateCommission(commission *models.ReferralCommission) error
	ListCommissions(filter ReferralCommissionListFilter) ([]models.ReferralCommission, int64, error)
	ListCommissionsByEvent(eventID uint) ([]models.ReferralCommission, error)

	CreateFailure(failure *models.CommissionFailure) error
	UpdateFailure(failure *models.CommissionFailure) error
	GetFailureByIDForUpdate(id uint) (*models.CommissionFailure, error)
	ListFailures(filter CommissionFailureListFilter) ([]models.CommissionFailure, int64, error)
	ListPendingFailureIDs(limit int) ([]uint, error)
}

// GormCommissionRepository GORM 实现
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓储
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCommissionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateCommission 写入佣金记录
func (r *GormCommissionRepository) CreateCommission(commission *models.ReferralCommission) error {
	return r.db.Create(commission).Error
}

// ListCommissions 分页查询佣金记录
func (r *GormCommissionRepository) ListCommissions(filter ReferralCommissionListFilter) ([]models.ReferralCommission, int64, error) {
	query := r.db.Model(&models.ReferralCommission{})
	if filter.BeneficiaryUserID != 0 {
		query = query.Where("beneficiary_user_id = ?", filter.BeneficiaryUserID)
	}
	if filter.SourceUserID != 0 {
		query = query.Where("source_user_id = ?", filter.SourceUserID)
	}
	if filter.KeyEventID != 0 {
		query = query.Where("key_event_id = ?", filter.KeyEventID)
	}
	if filter.TriggerType != "" {
		query = query.Where("trigger_type = ?", filter.TriggerType)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	return findPage[models.ReferralCommission](query, filter.Page, filter.PageSize, "id DESC")
}

// ListCommissionsByEvent 按触发事件查询佣金记录（按层级升序）
func (r *GormCommissionRepository) ListCommissionsByEvent(eventID uint) ([]models.ReferralCommission, error) {
	if eventID == 0 {
		return []models.ReferralCommission{}, nil
	}
	var rows []models.ReferralCommission
	if err := r.db.Where("key_event_id = ?", eventID).Order("level ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateFailure 写入补发记录
func (r *GormCommissionRepository) CreateFailure(failure *models.CommissionFailure) error {
	return r.db.Create(failure).Error
}

// UpdateFailure 更新补发记录
func (r *GormCommissionRepository) UpdateFailure(failure *models.CommissionFailure) error {
	return r.db.Save(failure).Error
}

// GetFailureByIDForUpdate 加锁获取补发记录
func (r *GormCommissionRepository) GetFailureByIDForUpdate(id uint) (*models.CommissionFailure, error) {
	if id == 0 {
		return nil, nil
	}
	var failure models.CommissionFailure
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&failure, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &failure, nil
}

// ListFailures 分页查询补发记录
func (r *GormCommissionRepository) ListFailures(filter CommissionFailureListFilter) ([]models.CommissionFailure, int64, error) {
	query := r.db.Model(&models.CommissionFailure{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.BeneficiaryUserID != 0 {
		query = query.Where("beneficiary_user_id = ?", filter.BeneficiaryUserID)
	}
	if filter.KeyEventID != 0 {
		query = query.Where("key_event_id = ?", filter.KeyEventID)
	}

	return findPage[models.CommissionFailure](query, filter.Page, filter.PageSize, "id DESC")
}

// ListPendingFailureIDs 获取待补发记录ID（最早的优先）
func (r *GormCommissionRepository) ListPendingFailureIDs(limit int) ([]uint, error) {
	query := r.db.Model(&models.CommissionFailure{}).
		Where("status = ?", constants.CommissionFailureStatusPending).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var ids []uint
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
