package models

import "time"

// ActivationKey 激活码
type ActivationKey struct {
	ID               uint       `gorm:"primarykey" json:"id"`
	Code             string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Price            Money      `gorm:"type:decimal(20,2);not null" json:"price"`
	WithdrawalLimit  Money      `gorm:"type:decimal(20,2);not null" json:"withdrawal_limit"`
	TotalWithdrawn   Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_withdrawn"`
	IsPaused         bool       `gorm:"not null;default:false" json:"is_paused"`
	RenewalCount     int        `gorm:"not null;default:0" json:"renewal_count"`
	LastRenewedAt    *time.Time `json:"last_renewed_at"`
	State            string     `gorm:"type:varchar(16);index;not null" json:"state"`
	OwnerUserID      *uint      `gorm:"index" json:"owner_user_id,omitempty"`     // 当前持有人
	OriginatorUserID uint       `gorm:"index;not null" json:"originator_user_id"` // 出售方（续费收款人）
	AssignedAt       *time.Time `json:"assigned_at"`
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (ActivationKey) TableName() string {
	return "activation_keys"
}

// KeyEvent 激活码事件（佣金触发事件的唯一标识）
type KeyEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	KeyID     uint      `gorm:"index;not null" json:"key_id"`
	EventType string    `gorm:"type:varchar(16);index;not null" json:"event_type"`
	UserID    uint      `gorm:"index" json:"user_id"`
	AdminID   *uint     `json:"admin_id,omitempty"`
	Amount    Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (KeyEvent) TableName() string {
	return "key_events"
}
