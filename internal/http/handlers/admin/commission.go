package admin

import (
	"strings"

	handlershared "github.com/adreward-next/internal/http/handlers/shared"
	"github.com/adreward-next/internal/http/response"
	"github.com/adreward-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListCommissions 佣金发放记录
func (h *Handler) ListCommissions(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	rows, total, err := h.CommissionQueryService.ListCommissions(repository.ReferralCommissionListFilter{
		Page:              page,
		PageSize:          pageSize,
		BeneficiaryUserID: handlershared.ParseQueryUint(c, "beneficiary_user_id"),
		SourceUserID:      handlershared.ParseQueryUint(c, "source_user_id"),
		KeyEventID:        handlershared.ParseQueryUint(c, "key_event_id"),
		TriggerType:       strings.TrimSpace(c.Query("trigger_type")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, handlershared.BuildPagination(page, pageSize, total))
}

// ListCommissionFailures 佣金补发记录
func (h *Handler) ListCommissionFailures(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	rows, total, err := h.ReconcileService.ListFailures(repository.CommissionFailureListFilter{
		Page:              page,
		PageSize:          pageSize,
		Status:            strings.TrimSpace(c.Query("status")),
		BeneficiaryUserID: handlershared.ParseQueryUint(c, "beneficiary_user_id"),
		KeyEventID:        handlershared.ParseQueryUint(c, "key_event_id"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, handlershared.BuildPagination(page, pageSize, total))
}

// RetryCommissionFailure 手动补发单条佣金
func (h *Handler) RetryCommissionFailure(c *gin.Context) {
	id, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	failure, err := h.ReconcileService.RetryFailure(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, failure)
}

// SweepCommissionFailures 批量补发待处理佣金
func (h *Handler) SweepCommissionFailures(c *gin.Context) {
	summary, err := h.ReconcileService.RetryPending(h.Config.Commission.ReconcileBatchSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, summary)
}
