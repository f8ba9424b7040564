package shared

import (
	"errors"

	"github.com/adreward-next/internal/http/response"
	"github.com/adreward-next/internal/i18n"
	"github.com/adreward-next/internal/logger"
	"github.com/adreward-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回国际化错误响应
func RespondError(c *gin.Context, code int, key string, err error) {
	RespondErrorWithMsg(c, code, i18n.T(i18n.ResolveLocale(c), key), err)
}

// RespondErrorWithMsg 返回自定义消息错误响应，5xx 记录 error 级别日志，其余记录 warn。
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil && appErr.Internal() {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	} else if err != nil {
		RequestLog(c).Warnw("handler_rejected",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// serviceKindCodes 业务错误类别到响应码的映射
var serviceKindCodes = map[service.ErrorKind]int{
	service.KindValidation:          response.CodeBadRequest,
	service.KindNotFound:            response.CodeNotFound,
	service.KindInsufficientBalance: response.CodeInsufficientBalance,
	service.KindStateConflict:       response.CodeConflict,
	service.KindPersistence:         response.CodeInternal,
}

// RespondServiceError 按业务错误类别返回响应，弱密码错误携带参数化提示。
// 持久化类错误记录原始错误日志。
func RespondServiceError(c *gin.Context, err error) {
	var perr interface {
		Key() string
		Args() []interface{}
	}
	if errors.As(err, &perr) {
		msg := i18n.Sprintf(i18n.ResolveLocale(c), perr.Key(), perr.Args()...)
		RespondErrorWithMsg(c, response.CodeBadRequest, msg, nil)
		return
	}
	kind := service.KindOf(err)
	code, ok := serviceKindCodes[kind]
	if !ok {
		code = response.CodeInternal
	}
	var logged error
	if kind == service.KindPersistence {
		logged = err
	}
	RespondError(c, code, "error."+service.CodeOf(err), logged)
}
