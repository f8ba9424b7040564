package admin

import (
	"strings"

	handlershared "github.com/adreward-next/internal/http/handlers/shared"
	"github.com/adreward-next/internal/http/response"
	"github.com/adreward-next/internal/repository"
	"github.com/adreward-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AdjustWalletRequest 管理端余额调整请求
type AdjustWalletRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Operation string `json:"operation"` // add/subtract
	Remark    string `json:"remark"`
}

// GetUserWallet 管理端获取用户钱包信息
func (h *Handler) GetUserWallet(c *gin.Context) {
	userID, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}
	user, err := h.UserRepo.GetByID(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "error.user_not_found", nil)
		return
	}
	account, err := h.WalletService.GetAccount(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"user":    user,
		"account": account,
	})
}

// GetUserWalletTransactions 管理端获取用户钱包流水
func (h *Handler) GetUserWalletTransactions(c *gin.Context) {
	userID, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	transactions, total, err := h.WalletService.ListTransactions(repository.WalletTransactionListFilter{
		Page:       page,
		PageSize:   pageSize,
		UserID:     userID,
		KeyEventID: handlershared.ParseQueryUint(c, "key_event_id"),
		Type:       strings.TrimSpace(c.Query("type")),
		Direction:  strings.TrimSpace(c.Query("direction")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, transactions, handlershared.BuildPagination(page, pageSize, total))
}

// AdjustUserWallet 管理端增减用户余额
func (h *Handler) AdjustUserWallet(c *gin.Context) {
	userID, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}
	var req AdjustWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	amount, ok := handlershared.ParseMoney(req.Amount)
	if !ok || amount.Decimal.LessThanOrEqual(decimal.Zero) {
		respondError(c, response.CodeBadRequest, "error.invalid_amount", nil)
		return
	}
	op := strings.ToLower(strings.TrimSpace(req.Operation))
	switch op {
	case "", "add":
	case "subtract":
		amount.Decimal = amount.Decimal.Neg()
	default:
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	account, txn, err := h.WalletService.AdminAdjustBalance(service.WalletAdjustInput{
		UserID: userID,
		Delta:  amount,
		Remark: req.Remark,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"account":     account,
		"transaction": txn,
	})
}

// VerifyUserLedger 校验用户账本链
func (h *Handler) VerifyUserLedger(c *gin.Context) {
	userID, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}
	report, err := h.WalletService.VerifyLedger(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, report)
}
