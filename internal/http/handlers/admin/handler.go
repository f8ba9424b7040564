package admin

import "github.com/adreward-next/internal/provider"

// Handler 后台运营接口：档位、激活码、钱包、提现、佣金补发与权限
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
