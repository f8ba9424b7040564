package repository

import (
	"errors"

	"github.com/adreward-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WithdrawRepository 提现申请数据访问接口
type WithdrawRepository interface {
	WithTx(tx *gorm.DB) WithdrawRepository
	Create(req *models.WithdrawRequest) error
	Update(req *models.WithdrawRequest) error
	GetByID(id uint) (*models.WithdrawRequest, error)
	GetByIDForUpdate(id uint) (*models.WithdrawRequest, error)
	List(filter WithdrawListFilter) ([]models.WithdrawRequest, int64, error)
}

// GormWithdrawRepository GORM 实现
type GormWithdrawRepository struct {
	db *gorm.DB
}

// NewWithdrawRepository 创建提现仓储
func NewWithdrawRepository(db *gorm.DB) *GormWithdrawRepository {
	return &GormWithdrawRepository{db: db}
}

// WithTx 绑定事务
func (r *GormWithdrawRepository) WithTx(tx *gorm.DB) WithdrawRepository {
	if tx == nil {
		return r
	}
	return &GormWithdrawRepository{db: tx}
}

// Create 创建提现申请
func (r *GormWithdrawRepository) Create(req *models.WithdrawRequest) error {
	return r.db.Create(req).Error
}

// Update 更新提现申请
func (r *GormWithdrawRepository) Update(req *models.WithdrawRequest) error {
	return r.db.Save(req).Error
}

// GetByID 按ID获取提现申请
func (r *GormWithdrawRepository) GetByID(id uint) (*models.WithdrawRequest, error) {
	return r.get(r.db, id)
}

// GetByIDForUpdate 加锁获取提现申请
func (r *GormWithdrawRepository) GetByIDForUpdate(id uint) (*models.WithdrawRequest, error) {
	return r.get(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormWithdrawRepository) get(query *gorm.DB, id uint) (*models.WithdrawRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var req models.WithdrawRequest
	if err := query.First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// List 分页查询提现申请
func (r *GormWithdrawRepository) List(filter WithdrawListFilter) ([]models.WithdrawRequest, int64, error) {
	query := r.db.Model(&models.WithdrawRequest{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	return findPage[models.WithdrawRequest](query, filter.Page, filter.PageSize, "id DESC")
}
