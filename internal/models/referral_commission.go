package models

import "time"

// ReferralCommission 佣金记录（创建后不可修改）
type ReferralCommission struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	KeyEventID        uint      `gorm:"index;not null" json:"key_event_id"`
	BeneficiaryUserID uint      `gorm:"index;not null" json:"beneficiary_user_id"` // 收佣人
	SourceUserID      uint      `gorm:"index;not null" json:"source_user_id"`      // 触发人
	Level             int       `gorm:"not null" json:"level"`
	Amount            Money     `gorm:"type:decimal(20,2);not null" json:"amount"`
	TierName          string    `gorm:"type:varchar(64);not null" json:"tier_name"`
	TriggerType       string    `gorm:"type:varchar(16);index;not null" json:"trigger_type"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (ReferralCommission) TableName() string {
	return "referral_commissions"
}

// CommissionFailure 分发失败的佣金，等待对账补发
type CommissionFailure struct {
	ID                uint       `gorm:"primarykey" json:"id"`
	KeyEventID        uint       `gorm:"index;not null" json:"key_event_id"`
	BeneficiaryUserID uint       `gorm:"index;not null" json:"beneficiary_user_id"`
	SourceUserID      uint       `gorm:"not null" json:"source_user_id"`
	Level             int        `gorm:"not null" json:"level"`
	Amount            Money      `gorm:"type:decimal(20,2);not null" json:"amount"`
	TierName          string     `gorm:"type:varchar(64);not null" json:"tier_name"`
	TriggerType       string     `gorm:"type:varchar(16);not null" json:"trigger_type"`
	Reason            string     `gorm:"type:text" json:"reason"`
	Status            string     `gorm:"type:varchar(16);index;not null" json:"status"`
	Attempts          int        `gorm:"not null;default:0" json:"attempts"`
	ResolvedAt        *time.Time `json:"resolved_at"`
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (CommissionFailure) TableName() string {
	return "commission_failures"
}

// WithdrawRequest 基于激活码额度的提现申请
type WithdrawRequest struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	UserID       uint       `gorm:"index;not null" json:"user_id"`
	KeyID        uint       `gorm:"index;not null" json:"key_id"`
	Amount       Money      `gorm:"type:decimal(20,2);not null" json:"amount"`
	Channel      string     `gorm:"type:varchar(32)" json:"channel"`
	Account      string     `gorm:"type:varchar(255)" json:"account"`
	Status       string     `gorm:"type:varchar(16);index;not null" json:"status"`
	RejectReason string     `gorm:"type:varchar(255)" json:"reject_reason"`
	ProcessedBy  *uint      `json:"processed_by,omitempty"`
	ProcessedAt  *time.Time `json:"processed_at"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (WithdrawRequest) TableName() string {
	return "withdraw_requests"
}
