package admin

import (
	"strings"

	handlershared "github.com/adreward-next/internal/http/handlers/shared"
	"github.com/adreward-next/internal/http/response"
	"github.com/adreward-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ReviewWithdrawRequest 提现审核请求
type ReviewWithdrawRequest struct {
	Action       string `json:"action" binding:"required"` // pay/reject
	RejectReason string `json:"reject_reason"`
}

// ListWithdraws 提现申请列表
func (h *Handler) ListWithdraws(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	rows, total, err := h.KeyService.ListWithdraws(repository.WithdrawListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   handlershared.ParseQueryUint(c, "user_id"),
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, handlershared.BuildPagination(page, pageSize, total))
}

// ReviewWithdraw 审核提现，驳回时退回余额
func (h *Handler) ReviewWithdraw(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	var req ReviewWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	withdraw, err := h.KeyService.ReviewWithdraw(adminID, id, strings.ToLower(strings.TrimSpace(req.Action)), strings.TrimSpace(req.RejectReason))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, withdraw)
}
