package response

// AppError 统一错误包装，Message 为已翻译的提示
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Internal 是否为服务端错误，仅此类错误需要记录原始错误
func (e *AppError) Internal() bool {
	return e != nil && e.Code >= CodeInternal
}
