package repository

import (
	"errors"
	"strings"

	"github.com/adreward-next/internal/constants"
	"github.com/adreward-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivationKeyRepository 激活码数据访问接口
type ActivationKeyRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ActivationKeyRepository

	GetByCode(code string) (*models.ActivationKey, error)
	GetByCodeForUpdate(code string) (*models.ActivationKey, error)
	GetByOwner(userID uint) (*models.ActivationKey, error)
	GetByOwnerForUpdate(userID uint) (*models.ActivationKey, error)
	GetByID(id uint) (*models.ActivationKey, error)
	GetByIDForUpdate(id uint) (*models.ActivationKey, error)
	Create(key *models.ActivationKey) error
	CreateBatch(keys []models.ActivationKey) error
	Update(key *models.ActivationKey) error
	List(filter ActivationKeyListFilter) ([]models.ActivationKey, int64, error)
	CreateEvent(event *models.KeyEvent) error
	CountEventsByUser(userID uint, eventTypes []string) (int64, error)
}

// GormActivationKeyRepository GORM 实现
type GormActivationKeyRepository struct {
	db *gorm.DB
}

// NewActivationKeyRepository 创建激活码仓储
func NewActivationKeyRepository(db *gorm.DB) *GormActivationKeyRepository {
	return &GormActivationKeyRepository{db: db}
}

// WithTx 绑定事务
func (r *GormActivationKeyRepository) WithTx(tx *gorm.DB) ActivationKeyRepository {
	if tx == nil {
		return r
	}
	return &GormActivationKeyRepository{db: tx}
}

// Transaction 执行事务
func (r *GormActivationKeyRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByCode 按激活码查询
func (r *GormActivationKeyRepository) GetByCode(code string) (*models.ActivationKey, error) {
	return r.firstBy(r.db, "code = ?", normalizeKeyCode(code))
}

// GetByCodeForUpdate 按激活码加锁查询
func (r *GormActivationKeyRepository) GetByCodeForUpdate(code string) (*models.ActivationKey, error) {
	return r.firstBy(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), "code = ?", normalizeKeyCode(code))
}

// GetByOwner 查询用户当前持有的激活码
func (r *GormActivationKeyRepository) GetByOwner(userID uint) (*models.ActivationKey, error) {
	if userID == 0 {
		return nil, nil
	}
	return r.firstBy(r.db, "owner_user_id = ? AND state <> ?", userID, constants.KeyStateUnassigned)
}

// GetByOwnerForUpdate 加锁查询用户当前持有的激活码
func (r *GormActivationKeyRepository) GetByOwnerForUpdate(userID uint) (*models.ActivationKey, error) {
	if userID == 0 {
		return nil, nil
	}
	return r.firstBy(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), "owner_user_id = ? AND state <> ?", userID, constants.KeyStateUnassigned)
}

// GetByID 按ID查询
func (r *GormActivationKeyRepository) GetByID(id uint) (*models.ActivationKey, error) {
	if id == 0 {
		return nil, nil
	}
	return r.firstBy(r.db, "id = ?", id)
}

// GetByIDForUpdate 按ID加锁查询
func (r *GormActivationKeyRepository) GetByIDForUpdate(id uint) (*models.ActivationKey, error) {
	if id == 0 {
		return nil, nil
	}
	return r.firstBy(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

func (r *GormActivationKeyRepository) firstBy(query *gorm.DB, cond string, args ...interface{}) (*models.ActivationKey, error) {
	var key models.ActivationKey
	if err := query.Where(cond, args...).Order("id ASC").First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &key, nil
}

// Create 创建激活码
func (r *GormActivationKeyRepository) Create(key *models.ActivationKey) error {
	return r.db.Create(key).Error
}

// CreateBatch 批量创建激活码
func (r *GormActivationKeyRepository) CreateBatch(keys []models.ActivationKey) error {
	if len(keys) == 0 {
		return nil
	}
	return r.db.CreateInBatches(keys, 100).Error
}

// Update 更新激活码
func (r *GormActivationKeyRepository) Update(key *models.ActivationKey) error {
	return r.db.Save(key).Error
}

// List 分页查询激活码
func (r *GormActivationKeyRepository) List(filter ActivationKeyListFilter) ([]models.ActivationKey, int64, error) {
	query := r.db.Model(&models.ActivationKey{})
	if code := normalizeKeyCode(filter.Code); code != "" {
		query = query.Where("code LIKE ?", "%"+code+"%")
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.OwnerUserID != 0 {
		query = query.Where("owner_user_id = ?", filter.OwnerUserID)
	}
	if filter.OriginatorUserID != 0 {
		query = query.Where("originator_user_id = ?", filter.OriginatorUserID)
	}

	return findPage[models.ActivationKey](query, filter.Page, filter.PageSize, "id DESC")
}

// CreateEvent 写入激活码事件
func (r *GormActivationKeyRepository) CreateEvent(event *models.KeyEvent) error {
	return r.db.Create(event).Error
}

// CountEventsByUser 统计用户的指定类型事件数
func (r *GormActivationKeyRepository) CountEventsByUser(userID uint, eventTypes []string) (int64, error) {
	if userID == 0 {
		return 0, nil
	}
	query := r.db.Model(&models.KeyEvent{}).Where("user_id = ?", userID)
	if len(eventTypes) > 0 {
		query = query.Where("event_type IN ?", eventTypes)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func normalizeKeyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
