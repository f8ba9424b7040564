package public

import "github.com/adreward-next/internal/provider"

// Handler 用户侧接口：注册登录、激活码、钱包与推荐关系
type Handler struct {
	*provider.Container
}

// New 创建用户侧处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
