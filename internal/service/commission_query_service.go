package service

import (
	"strings"
	"time"

	"github.com/adreward-next/internal/models"
	"github.com/adreward-next/internal/repository"

	"github.com/shopspring/decimal"
)

// CommissionQueryService 佣金与推荐关系查询
type CommissionQueryService struct {
	commissionRepo repository.CommissionRepository
	userRepo       repository.UserRepository
	walletRepo     repository.WalletRepository
}

// ReferralItem 直推用户
type ReferralItem struct {
	UserID      uint       `json:"user_id"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email"`
	Activated   bool       `json:"activated"`
	ActivatedAt *time.Time `json:"activated_at"`
	JoinedAt    time.Time  `json:"joined_at"`
}

// ReferralOverview 推荐概览
type ReferralOverview struct {
	ReferralCode          string       `json:"referral_code"`
	TotalReferrals        int64        `json:"total_referrals"`
	ActiveReferrals       int64        `json:"active_referrals"`
	TotalCommissionEarned models.Money `json:"total_commission_earned"`
}

// NewCommissionQueryService 创建查询服务
func NewCommissionQueryService(commissionRepo repository.CommissionRepository, userRepo repository.UserRepository, walletRepo repository.WalletRepository) *CommissionQueryService {
	return &CommissionQueryService{
		commissionRepo: commissionRepo,
		userRepo:       userRepo,
		walletRepo:     walletRepo,
	}
}

// ListCommissions 查询佣金记录
func (s *CommissionQueryService) ListCommissions(filter repository.ReferralCommissionListFilter) ([]models.ReferralCommission, int64, error) {
	rows, total, err := s.commissionRepo.ListCommissions(filter)
	if err != nil {
		return nil, 0, wrapPersistence(err)
	}
	return rows, total, nil
}

// ListReferrals 查询直推用户
func (s *CommissionQueryService) ListReferrals(userID uint, page, pageSize int) ([]ReferralItem, int64, error) {
	if userID == 0 {
		return nil, 0, ErrInvalidUserID
	}
	users, total, err := s.userRepo.List(repository.UserListFilter{
		Page:       page,
		PageSize:   pageSize,
		ReferredBy: userID,
	})
	if err != nil {
		return nil, 0, wrapPersistence(err)
	}
	items := make([]ReferralItem, 0, len(users))
	for _, user := range users {
		items = append(items, ReferralItem{
			UserID:      user.ID,
			DisplayName: user.DisplayName,
			Email:       maskEmail(user.Email),
			Activated:   user.ActivatedAt != nil,
			ActivatedAt: user.ActivatedAt,
			JoinedAt:    user.CreatedAt,
		})
	}
	return items, total, nil
}

// GetReferralOverview 返回推荐码与直推统计
func (s *CommissionQueryService) GetReferralOverview(userID uint) (*ReferralOverview, error) {
	if userID == 0 {
		return nil, ErrInvalidUserID
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	overview := &ReferralOverview{
		ReferralCode:          user.ReferralCode,
		TotalCommissionEarned: models.NewMoneyFromDecimal(decimal.Zero),
	}
	account, err := s.walletRepo.GetAccountByUserID(userID)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	if account != nil {
		overview.TotalReferrals = account.TotalReferrals
		overview.ActiveReferrals = account.ActiveReferrals
		overview.TotalCommissionEarned = account.TotalCommissionEarned
	}
	return overview, nil
}

func maskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	local := email[:at]
	if len(local) <= 2 {
		return local[:1] + "***" + email[at:]
	}
	return local[:2] + "***" + email[at:]
}
