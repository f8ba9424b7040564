package admin

import (
	"strings"

	handlershared "github.com/adreward-next/internal/http/handlers/shared"
	"github.com/adreward-next/internal/http/response"
	"github.com/adreward-next/internal/repository"
	"github.com/adreward-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateKeysRequest 批量创建激活码请求
type CreateKeysRequest struct {
	Count            int    `json:"count" binding:"required"`
	Price            string `json:"price" binding:"required"`
	WithdrawalLimit  string `json:"withdrawal_limit" binding:"required"`
	OriginatorUserID uint   `json:"originator_user_id" binding:"required"`
	Prefix           string `json:"prefix"`
}

// AssignKeyRequest 管理员分配激活码请求
type AssignKeyRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

// PauseKeyRequest 暂停激活码请求
type PauseKeyRequest struct {
	Code string `json:"code" binding:"required"`
}

// ListKeys 激活码列表
func (h *Handler) ListKeys(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	keys, total, err := h.KeyService.ListKeys(repository.ActivationKeyListFilter{
		Page:             page,
		PageSize:         pageSize,
		Code:             strings.TrimSpace(c.Query("code")),
		State:            strings.TrimSpace(c.Query("state")),
		OwnerUserID:      handlershared.ParseQueryUint(c, "owner_user_id"),
		OriginatorUserID: handlershared.ParseQueryUint(c, "originator_user_id"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, keys, handlershared.BuildPagination(page, pageSize, total))
}

// CreateKeys 批量创建激活码
func (h *Handler) CreateKeys(c *gin.Context) {
	var req CreateKeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	price, ok := handlershared.ParseMoney(req.Price)
	if !ok {
		respondError(c, response.CodeBadRequest, "error.invalid_amount", nil)
		return
	}
	limit, ok := handlershared.ParseMoney(req.WithdrawalLimit)
	if !ok {
		respondError(c, response.CodeBadRequest, "error.invalid_amount", nil)
		return
	}
	keys, err := h.KeyService.CreateKeys(service.CreateKeysInput{
		Count:            req.Count,
		Price:            price,
		WithdrawalLimit:  limit,
		OriginatorUserID: req.OriginatorUserID,
		Prefix:           req.Prefix,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, keys)
}

// AssignKey 管理员分配激活码，不扣款但照常分发佣金
func (h *Handler) AssignKey(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req AssignKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.KeyService.AssignKey(adminID, req.UserID, req.Code)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}

// PauseKey 暂停激活码，持有人需续费恢复
func (h *Handler) PauseKey(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req PauseKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	key, err := h.KeyService.PauseKey(adminID, req.Code)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, key)
}
