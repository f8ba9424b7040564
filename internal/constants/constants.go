package constants

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 钱包交易类型常量
const (
	WalletTxnTypeAdminAdjust    = "admin_adjust"
	WalletTxnTypeKeyPurchase    = "key_purchase"
	WalletTxnTypeKeySale        = "key_sale"
	WalletTxnTypeKeyRenewal     = "key_renewal"
	WalletTxnTypeKeyRenewalSale = "key_renewal_sale"
	WalletTxnTypeCommission     = "commission"
	WalletTxnTypeWithdraw       = "withdraw"
	WalletTxnTypeWithdrawRefund = "withdraw_refund"
)

// 钱包交易方向常量
const (
	WalletTxnDirectionIn  = "in"
	WalletTxnDirectionOut = "out"
)

// 激活码状态常量
const (
	KeyStateUnassigned = "unassigned"
	KeyStateActive     = "active"
	KeyStateExhausted  = "exhausted"
	KeyStatePaused     = "paused"
)

// 激活码事件类型常量（同时作为佣金触发类型）
const (
	KeyEventPurchase   = "purchase"
	KeyEventRenewal    = "renewal"
	KeyEventAssignment = "assignment"
	KeyEventWithdrawal = "withdrawal"
	KeyEventPause      = "pause"
)

// 佣金补发记录状态常量
const (
	CommissionFailureStatusPending   = "pending"
	CommissionFailureStatusResolved  = "resolved"
	CommissionFailureStatusAbandoned = "abandoned"
)

// 提现申请状态常量
const (
	WithdrawStatusPendingReview = "pending_review"
	WithdrawStatusRejected      = "rejected"
	WithdrawStatusPaid          = "paid"
)

// 提现审核动作常量
const (
	WithdrawActionReject = "reject"
	WithdrawActionPay    = "pay"
)

// 异步队列常量
const (
	QueueDefault            = "default"
	TaskCommissionReconcile = "commission:reconcile"
)
