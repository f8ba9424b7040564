package public

import (
	"strings"

	handlershared "github.com/adreward-next/internal/http/handlers/shared"
	"github.com/adreward-next/internal/http/response"
	"github.com/adreward-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetReferralOverview 推荐码与直推统计
func (h *Handler) GetReferralOverview(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	overview, err := h.CommissionQueryService.GetReferralOverview(uid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, overview)
}

// ListMyReferrals 直推用户列表
func (h *Handler) ListMyReferrals(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	items, total, err := h.CommissionQueryService.ListReferrals(uid, page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// ListMyCommissions 当前用户获得的佣金
func (h *Handler) ListMyCommissions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	rows, total, err := h.CommissionQueryService.ListCommissions(repository.ReferralCommissionListFilter{
		Page:              page,
		PageSize:          pageSize,
		BeneficiaryUserID: uid,
		TriggerType:       strings.TrimSpace(c.Query("trigger_type")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, handlershared.BuildPagination(page, pageSize, total))
}
