package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/adreward-next/internal/config"
	"github.com/adreward-next/internal/http/response"
	"github.com/adreward-next/internal/i18n"
	"github.com/adreward-next/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// maxKeyBodyBytes 提取限流字段时最多读取的请求体字节数
const maxKeyBodyBytes = 16 << 10

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则，BlockSeconds 大于 0 时超限后按封禁时长重置过期
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	BlockSeconds  int
	MessageKey    string
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) messageKey() string {
	if key := strings.TrimSpace(r.MessageKey); key != "" {
		return key
	}
	return "error.rate_limited"
}

// KEYS[1]=计数 key ARGV[1]=窗口 ARGV[2]=上限 ARGV[3]=封禁时长
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local block = tonumber(ARGV[3])
if current == tonumber(ARGV[2]) + 1 and block > 0 then
	redis.call("EXPIRE", KEYS[1], block)
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// rateDecision 单次计数结果
type rateDecision struct {
	count int64
	ttl   int64
}

// exceeded 是否超过规则上限
func (d rateDecision) exceeded(rule RateLimitRule) bool {
	return d.count > int64(rule.MaxRequests)
}

// retryAfter 计算需要等待的秒数，TTL 丢失时依次退回封禁时长与窗口
func (d rateDecision) retryAfter(rule RateLimitRule) int {
	for _, candidate := range []int{int(d.ttl), rule.BlockSeconds, rule.WindowSeconds} {
		if candidate >= 1 {
			return candidate
		}
	}
	return 1
}

func hitRateLimit(ctx context.Context, client *redis.Client, rule RateLimitRule, key string) (rateDecision, error) {
	values, err := rateLimitScript.Run(ctx, client, []string{key}, rule.WindowSeconds, rule.MaxRequests, rule.BlockSeconds).Int64Slice()
	if err != nil {
		return rateDecision{}, err
	}
	if len(values) < 2 {
		return rateDecision{}, fmt.Errorf("unexpected rate limit reply: %v", values)
	}
	return rateDecision{count: values[0], ttl: values[1]}, nil
}

// LoginRateLimitRule 由安全配置生成登录/注册限流规则
func LoginRateLimitRule(cfg config.LoginRateLimitConfig, prefix string) RateLimitRule {
	return RateLimitRule{
		Prefix:        prefix,
		WindowSeconds: cfg.WindowSeconds,
		MaxRequests:   cfg.MaxAttempts,
		BlockSeconds:  cfg.BlockSeconds,
		MessageKey:    "error.rate_limited",
	}
}

// RateLimitMiddleware Redis 频率限制中间件，未配置 Redis 时直接放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = rule.Prefix + ":" + key
		}

		decision, err := hitRateLimit(c.Request.Context(), client, rule, key)
		if err != nil {
			logger.Warnw("rate_limit_script_failed", "prefix", rule.Prefix, "error", err)
			response.Error(c, response.CodeInternal, i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable"))
			c.Abort()
			return
		}
		if decision.exceeded(rule) {
			wait := decision.retryAfter(rule)
			c.Header("Retry-After", strconv.Itoa(wait))
			response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), rule.messageKey(), wait))
			c.Abort()
			return
		}

		c.Next()
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByUser 使用已认证用户 ID 作为限流 key，未认证时退回 IP
func KeyByUser(c *gin.Context) string {
	if id, ok := c.Get(userIDContextKey); ok {
		if uid, ok := id.(uint); ok && uid > 0 {
			return "user:" + strconv.FormatUint(uint64(uid), 10)
		}
	}
	return c.ClientIP()
}

// KeyByIPAndJSONField 使用 IP + JSON 字段作为限流 key
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(readJSONField(c, field))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

// readJSONField 读取 JSON 请求体中的字符串字段，读取后恢复请求体供后续绑定
func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxKeyBodyBytes))
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), c.Request.Body))
	if len(body) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var text string
	if raw, ok := payload[field]; !ok || json.Unmarshal(raw, &text) != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
