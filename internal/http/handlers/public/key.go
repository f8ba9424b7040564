package public

import (
	"strings"

	handlershared "github.com/adreward-next/internal/http/handlers/shared"
	"github.com/adreward-next/internal/http/response"
	"github.com/adreward-next/internal/repository"
	"github.com/adreward-next/internal/service"

	"github.com/gin-gonic/gin"
)

// PurchaseKeyRequest 购买激活码请求
type PurchaseKeyRequest struct {
	Code string `json:"code" binding:"required"`
}

// WithdrawRequest 提现请求
type WithdrawRequest struct {
	Amount  string `json:"amount" binding:"required"`
	Channel string `json:"channel"`
	Account string `json:"account"`
}

// GetMyKey 查询当前用户激活码状态
func (h *Handler) GetMyKey(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	status, err := h.KeyService.GetKeyStatus(uid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, status)
}

// PurchaseKey 余额购买激活码
func (h *Handler) PurchaseKey(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req PurchaseKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.KeyService.PurchaseKey(uid, req.Code)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}

// RenewKey 续费当前激活码
func (h *Handler) RenewKey(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	result, err := h.KeyService.RenewKey(uid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}

// WithdrawWithKey 使用激活码额度申请提现
func (h *Handler) WithdrawWithKey(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	amount, ok := handlershared.ParseMoney(req.Amount)
	if !ok {
		respondError(c, response.CodeBadRequest, "error.invalid_amount", nil)
		return
	}
	withdraw, err := h.KeyService.WithdrawWithKey(uid, service.WithdrawInput{
		Amount:  amount,
		Channel: strings.TrimSpace(req.Channel),
		Account: strings.TrimSpace(req.Account),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, withdraw)
}

// ListMyWithdraws 当前用户提现记录
func (h *Handler) ListMyWithdraws(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	rows, total, err := h.KeyService.ListWithdraws(repository.WithdrawListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, handlershared.BuildPagination(page, pageSize, total))
}
