package repository

import "time"

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page       int
	PageSize   int
	Keyword    string
	Status     string
	ReferredBy uint
}

// WalletAccountListFilter 钱包账户列表过滤条件
type WalletAccountListFilter struct {
	Page     int
	PageSize int
	UserID   uint
}

// WalletTransactionListFilter 钱包流水列表过滤条件
type WalletTransactionListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	KeyEventID  uint
	Type        string
	Direction   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CommissionTierListFilter 佣金档位列表过滤条件
type CommissionTierListFilter struct {
	Page     int
	PageSize int
	IsActive *bool
}

// ActivationKeyListFilter 激活码列表过滤条件
type ActivationKeyListFilter struct {
	Page             int
	PageSize         int
	Code             string
	State            string
	OwnerUserID      uint
	OriginatorUserID uint
}

// ReferralCommissionListFilter 佣金记录列表过滤条件
type ReferralCommissionListFilter struct {
	Page              int
	PageSize          int
	BeneficiaryUserID uint
	SourceUserID      uint
	KeyEventID        uint
	TriggerType       string
	CreatedFrom       *time.Time
	CreatedTo         *time.Time
}

// CommissionFailureListFilter 佣金补发记录过滤条件
type CommissionFailureListFilter struct {
	Page              int
	PageSize          int
	Status            string
	BeneficiaryUserID uint
	KeyEventID        uint
}

// WithdrawListFilter 提现申请过滤条件
type WithdrawListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Status   string
}

// AdminListFilter 管理员列表过滤条件
type AdminListFilter struct {
	Page     int
	PageSize int
	Role     string
}
