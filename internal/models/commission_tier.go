package models

import "time"

// CommissionTier 佣金档位：价格区间 + 每级固定佣金
type CommissionTier struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	Name       string    `gorm:"type:varchar(64);not null" json:"name"`
	MinPrice   Money     `gorm:"type:decimal(20,2);not null" json:"min_price"` // 含
	MaxPrice   Money     `gorm:"type:decimal(20,2);not null" json:"max_price"` // 含
	Level1Rate Money     `gorm:"type:decimal(20,2);not null;default:0" json:"level1_rate"`
	Level2Rate Money     `gorm:"type:decimal(20,2);not null;default:0" json:"level2_rate"`
	Level3Rate Money     `gorm:"type:decimal(20,2);not null;default:0" json:"level3_rate"`
	Level4Rate Money     `gorm:"type:decimal(20,2);not null;default:0" json:"level4_rate"`
	Level5Rate Money     `gorm:"type:decimal(20,2);not null;default:0" json:"level5_rate"`
	Level6Rate Money     `gorm:"type:decimal(20,2);not null;default:0" json:"level6_rate"`
	IsActive   bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName 指定表名
func (CommissionTier) TableName() string {
	return "commission_tiers"
}

// RateForLevel 返回指定层级的佣金，层级越界返回 0
func (t *CommissionTier) RateForLevel(level int) Money {
	if t == nil {
		return Money{}
	}
	switch level {
	case 1:
		return t.Level1Rate
	case 2:
		return t.Level2Rate
	case 3:
		return t.Level3Rate
	case 4:
		return t.Level4Rate
	case 5:
		return t.Level5Rate
	case 6:
		return t.Level6Rate
	default:
		return Money{}
	}
}

// Rates 按层级顺序返回全部佣金
func (t *CommissionTier) Rates() []Money {
	return []Money{t.Level1Rate, t.Level2Rate, t.Level3Rate, t.Level4Rate, t.Level5Rate, t.Level6Rate}
}

// SetRates 按层级顺序写入佣金，多余的忽略
func (t *CommissionTier) SetRates(rates []Money) {
	targets := []*Money{&t.Level1Rate, &t.Level2Rate, &t.Level3Rate, &t.Level4Rate, &t.Level5Rate, &t.Level6Rate}
	for i, target := range targets {
		if i < len(rates) {
			*target = NewMoneyFromDecimal(rates[i].Decimal)
		} else {
			*target = Money{}
		}
	}
}

// Contains 判断价格是否落在区间内
func (t *CommissionTier) Contains(price Money) bool {
	return !price.Decimal.LessThan(t.MinPrice.Decimal) && !price.Decimal.GreaterThan(t.MaxPrice.Decimal)
}
