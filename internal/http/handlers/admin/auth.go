package admin

import (
	"time"

	handlershared "github.com/adreward-next/internal/http/handlers/shared"
	"github.com/adreward-next/internal/http/response"
	"github.com/adreward-next/internal/models"
	"github.com/adreward-next/internal/repository"
	"github.com/adreward-next/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// CreateAdminRequest 创建管理员请求
type CreateAdminRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
	IsSuper  bool   `json:"is_super"`
}

func buildAdminPayload(admin *models.Admin) gin.H {
	return gin.H{
		"id":            admin.ID,
		"username":      admin.Username,
		"role":          admin.Role,
		"is_super":      admin.IsSuper,
		"last_login_at": admin.LastLoginAt,
	}
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	admin, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
		"user":       buildAdminPayload(admin),
	})
}

// GetAdminMe 当前管理员
func (h *Handler) GetAdminMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	admin, err := h.AuthService.GetAdmin(adminID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, buildAdminPayload(admin))
}

// ChangeAdminPassword 修改管理员密码
func (h *Handler) ChangeAdminPassword(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.AuthService.ChangePassword(adminID, req.OldPassword, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// CreateAdmin 创建管理员（仅超级管理员）
func (h *Handler) CreateAdmin(c *gin.Context) {
	var req CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if req.Role != "" && h.AuthzService != nil {
		exists, err := h.AuthzService.RoleExists(req.Role)
		if err != nil {
			respondError(c, response.CodeInternal, "error.internal", err)
			return
		}
		if !exists {
			respondServiceError(c, service.ErrAdminRoleInvalid)
			return
		}
	}
	admin, err := h.AuthService.CreateAdmin(service.CreateAdminInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
		IsSuper:  req.IsSuper,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, buildAdminPayload(admin))
}

// SetAdminRoleRequest 变更角色请求
type SetAdminRoleRequest struct {
	Role string `json:"role"`
}

// ListAdmins 管理员列表
func (h *Handler) ListAdmins(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	admins, total, err := h.AuthService.ListAdmins(repository.AdminListFilter{
		Page:     page,
		PageSize: pageSize,
		Role:     c.Query("role"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	items := make([]gin.H, 0, len(admins))
	for i := range admins {
		items = append(items, buildAdminPayload(&admins[i]))
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// SetAdminRole 变更管理员角色，空角色表示收回全部权限
func (h *Handler) SetAdminRole(c *gin.Context) {
	adminID, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.admin_id_invalid", nil)
		return
	}
	var req SetAdminRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if req.Role != "" {
		exists, err := h.AuthzService.RoleExists(req.Role)
		if err != nil {
			respondError(c, response.CodeInternal, "error.internal", err)
			return
		}
		if !exists {
			respondServiceError(c, service.ErrAdminRoleInvalid)
			return
		}
	}
	admin, err := h.AuthService.SetAdminRole(adminID, req.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, buildAdminPayload(admin))
}
