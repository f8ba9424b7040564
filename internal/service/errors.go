package service

import (
	"errors"
	"fmt"
)

// ErrorKind 业务错误分类，调用方按分类渲染而不是按文案
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindNotFound            ErrorKind = "not_found"
	KindInsufficientBalance ErrorKind = "insufficient_balance"
	KindStateConflict       ErrorKind = "state_conflict"
	KindPersistence         ErrorKind = "persistence"
)

// Error 业务错误，Code 稳定不变，可直接作为 i18n 键后缀
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// KindOf 返回错误分类，未知错误一律归为持久化错误
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// CodeOf 返回错误码，未知错误返回 persistence_failed
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrPersistence.Code
}

// wrapPersistence 包装底层存储错误，保留原始错误链
func wrapPersistence(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// 校验错误
var (
	ErrInvalidAmount         = newError(KindValidation, "invalid_amount", "金额无效")
	ErrInvalidUserID         = newError(KindValidation, "invalid_user", "用户参数无效")
	ErrKeyCodeRequired       = newError(KindValidation, "key_code_required", "激活码不能为空")
	ErrKeyBatchInvalid       = newError(KindValidation, "key_batch_invalid", "激活码批量参数无效")
	ErrTierNameRequired      = newError(KindValidation, "tier_name_required", "档位名称不能为空")
	ErrTierRangeInvalid      = newError(KindValidation, "tier_range_invalid", "档位价格区间无效")
	ErrTierRateInvalid       = newError(KindValidation, "tier_rate_invalid", "档位佣金不能为负数")
	ErrTierOverlap           = newError(KindValidation, "tier_overlap", "档位价格区间与其他启用档位重叠")
	ErrInvalidEmail          = newError(KindValidation, "email_invalid", "邮箱格式不正确")
	ErrWeakPassword          = newError(KindValidation, "password_weak", "密码强度不足")
	ErrReferralCodeInvalid   = newError(KindValidation, "referral_code_invalid", "推荐码无效")
	ErrInvalidCredentials    = newError(KindValidation, "invalid_credentials", "账号或密码错误")
	ErrWithdrawActionInvalid = newError(KindValidation, "withdraw_action_invalid", "提现审核动作无效")
	ErrAdminUsernameInvalid  = newError(KindValidation, "admin_username_invalid", "管理员账号不能为空")
	ErrAdminRoleInvalid      = newError(KindValidation, "admin_role_invalid", "角色不存在")
)

// 资源不存在
var (
	ErrUserNotFound              = newError(KindNotFound, "user_not_found", "用户不存在")
	ErrAdminNotFound             = newError(KindNotFound, "admin_not_found", "管理员不存在")
	ErrWalletAccountNotFound     = newError(KindNotFound, "wallet_account_not_found", "钱包账户不存在")
	ErrKeyNotFound               = newError(KindNotFound, "key_not_found", "激活码不存在")
	ErrTierNotFound              = newError(KindNotFound, "tier_not_found", "佣金档位不存在")
	ErrWithdrawNotFound          = newError(KindNotFound, "withdraw_not_found", "提现申请不存在")
	ErrCommissionFailureNotFound = newError(KindNotFound, "commission_failure_not_found", "佣金补发记录不存在")
)

// 余额不足
var (
	ErrWalletInsufficientBalance = newError(KindInsufficientBalance, "wallet_insufficient_balance", "钱包余额不足")
)

// 状态冲突
var (
	ErrKeyNotAvailable           = newError(KindStateConflict, "key_not_available", "激活码已被使用")
	ErrKeyAlreadyOwned           = newError(KindStateConflict, "key_already_owned", "用户已持有激活码")
	ErrKeySelfPurchase           = newError(KindStateConflict, "key_self_purchase", "不能购买自己出售的激活码")
	ErrKeyRenewalNotRequired     = newError(KindStateConflict, "key_renewal_not_required", "激活码仍可使用，无需续费")
	ErrKeyWithdrawNotAllowed     = newError(KindStateConflict, "key_withdraw_not_allowed", "激活码当前不可提现")
	ErrKeyWithdrawLimitExceeded  = newError(KindStateConflict, "key_withdraw_limit_exceeded", "提现金额超过激活码剩余额度")
	ErrKeyAlreadyPaused          = newError(KindStateConflict, "key_already_paused", "激活码已暂停")
	ErrWithdrawStatusInvalid     = newError(KindStateConflict, "withdraw_status_invalid", "提现申请状态不允许该操作")
	ErrCommissionFailureClosed   = newError(KindStateConflict, "commission_failure_closed", "佣金补发记录已处理")
	ErrEmailExists               = newError(KindStateConflict, "email_exists", "邮箱已被注册")
	ErrUserDisabled              = newError(KindStateConflict, "user_disabled", "用户已被禁用")
	ErrReferralAlreadyBound      = newError(KindStateConflict, "referral_already_bound", "推荐关系已绑定")
	ErrReferralCodeGenerateLimit = newError(KindStateConflict, "referral_code_generate_failed", "推荐码生成失败")
	ErrAdminExists               = newError(KindStateConflict, "admin_exists", "管理员账号已存在")
	ErrAdminRoleLocked           = newError(KindStateConflict, "admin_role_locked", "超级管理员不可变更角色")
)

// 持久化错误
var (
	ErrPersistence      = newError(KindPersistence, "persistence_failed", "数据写入失败")
	ErrQueueUnavailable = newError(KindPersistence, "queue_unavailable", "任务队列不可用")
)
