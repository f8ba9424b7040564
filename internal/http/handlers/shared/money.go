package shared

import (
	"strings"

	"github.com/adreward-next/internal/models"

	"github.com/shopspring/decimal"
)

// ParseMoney 解析金额字符串，保留两位小数。
func ParseMoney(raw string) (models.Money, bool) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return models.Money{}, false
	}
	return models.NewMoneyFromDecimal(value), true
}
