package models

import "time"

// WalletAccount 用户钱包账户（每个用户一条）
type WalletAccount struct {
	ID                    uint      `gorm:"primarykey" json:"id"`
	UserID                uint      `gorm:"uniqueIndex;not null" json:"user_id"`                                  // 所属用户
	Balance               Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`                 // 当前余额（不可为负）
	TotalCommissionEarned Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_commission_earned"` // 累计佣金
	TotalReferrals        int64     `gorm:"not null;default:0" json:"total_referrals"`                            // 直推人数
	ActiveReferrals       int64     `gorm:"not null;default:0" json:"active_referrals"`                           // 已激活直推人数
	CreatedAt             time.Time `gorm:"index" json:"created_at"`
	UpdatedAt             time.Time `gorm:"index" json:"updated_at"`
}

// TableName 指定表名
func (WalletAccount) TableName() string {
	return "wallet_accounts"
}

// WalletTransaction 钱包流水（只追加）
type WalletTransaction struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	UserID        uint      `gorm:"index;not null" json:"user_id"`
	KeyEventID    *uint     `gorm:"index" json:"key_event_id,omitempty"` // 触发事件
	Type          string    `gorm:"type:varchar(32);index;not null" json:"type"`
	Direction     string    `gorm:"type:varchar(8);not null" json:"direction"` // in / out
	Amount        Money     `gorm:"type:decimal(20,2);not null" json:"amount"`
	BalanceBefore Money     `gorm:"type:decimal(20,2);not null" json:"balance_before"`
	BalanceAfter  Money     `gorm:"type:decimal(20,2);not null" json:"balance_after"`
	Currency      string    `gorm:"type:varchar(8);not null" json:"currency"`
	Reference     string    `gorm:"type:varchar(128);index" json:"reference"`
	Remark        string    `gorm:"type:varchar(255)" json:"remark"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
