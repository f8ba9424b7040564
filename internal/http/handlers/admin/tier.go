package admin

import (
	"strconv"

	handlershared "github.com/adreward-next/internal/http/handlers/shared"
	"github.com/adreward-next/internal/http/response"
	"github.com/adreward-next/internal/models"
	"github.com/adreward-next/internal/repository"
	"github.com/adreward-next/internal/service"

	"github.com/gin-gonic/gin"
)

// TierRequest 档位创建/更新请求，金额使用字符串避免精度丢失
type TierRequest struct {
	Name     string   `json:"name" binding:"required"`
	MinPrice string   `json:"min_price" binding:"required"`
	MaxPrice string   `json:"max_price" binding:"required"`
	Rates    []string `json:"rates"`
	IsActive *bool    `json:"is_active"`
}

// TierActiveRequest 启停档位请求
type TierActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func (r TierRequest) toInput() (service.TierInput, bool) {
	minPrice, ok := handlershared.ParseMoney(r.MinPrice)
	if !ok {
		return service.TierInput{}, false
	}
	maxPrice, ok := handlershared.ParseMoney(r.MaxPrice)
	if !ok {
		return service.TierInput{}, false
	}
	rates := make([]models.Money, 0, len(r.Rates))
	for _, raw := range r.Rates {
		rate, ok := handlershared.ParseMoney(raw)
		if !ok {
			return service.TierInput{}, false
		}
		rates = append(rates, rate)
	}
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return service.TierInput{
		Name:     r.Name,
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Rates:    rates,
		IsActive: active,
	}, true
}

// ListTiers 档位列表
func (h *Handler) ListTiers(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.CommissionTierListFilter{Page: page, PageSize: pageSize}
	if raw := c.Query("is_active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.IsActive = &active
		}
	}
	tiers, total, err := h.TierService.ListTiers(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, tiers, handlershared.BuildPagination(page, pageSize, total))
}

// CreateTier 创建档位
func (h *Handler) CreateTier(c *gin.Context) {
	var req TierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, ok := req.toInput()
	if !ok {
		respondError(c, response.CodeBadRequest, "error.invalid_amount", nil)
		return
	}
	tier, err := h.TierService.CreateTier(input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, tier)
}

// UpdateTier 更新档位
func (h *Handler) UpdateTier(c *gin.Context) {
	id, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	var req TierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, ok := req.toInput()
	if !ok {
		respondError(c, response.CodeBadRequest, "error.invalid_amount", nil)
		return
	}
	tier, err := h.TierService.UpdateTier(id, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, tier)
}

// SetTierActive 启用或停用档位
func (h *Handler) SetTierActive(c *gin.Context) {
	id, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	var req TierActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	tier, err := h.TierService.SetTierActive(id, *req.IsActive)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, tier)
}
