package i18n

// messages 按 locale 索引的翻译表
var messages = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":                   "请求参数错误",
		"error.unauthorized":                  "未登录或登录已失效",
		"error.token_invalid":                 "登录凭证无效",
		"error.jwt_secret_missing":            "鉴权密钥未配置",
		"error.auth_header_missing":           "缺少 Authorization 请求头",
		"error.auth_header_invalid":           "Authorization 格式错误",
		"error.token_revoked":                 "登录凭证已失效，请重新登录",
		"error.rate_limited":                  "操作过于频繁，请 %d 秒后再试",
		"error.rate_limit_unavailable":        "限流服务暂不可用",
		"error.forbidden":                     "无权限访问",
		"error.not_found":                     "资源不存在",
		"error.too_many_requests":             "请求过于频繁，请稍后再试",
		"error.internal":                      "服务器内部错误",
		"error.user_id_invalid":               "用户标识无效",
		"error.admin_id_invalid":              "管理员标识无效",
		"error.user_id_type_invalid":          "用户标识类型错误",
		"error.admin_id_type_invalid":         "管理员标识类型错误",
		"error.password_min_length":           "密码长度至少为 %d 位",
		"error.password_require_letter":       "密码必须包含字母",
		"error.password_require_number":       "密码必须包含数字",
		"error.invalid_amount":                "金额无效",
		"error.invalid_user":                  "用户参数无效",
		"error.key_code_required":             "激活码不能为空",
		"error.key_batch_invalid":             "激活码批量参数无效",
		"error.tier_name_required":            "档位名称不能为空",
		"error.tier_range_invalid":            "档位价格区间无效",
		"error.tier_rate_invalid":             "档位佣金不能为负数",
		"error.tier_overlap":                  "档位价格区间与其他启用档位重叠",
		"error.email_invalid":                 "邮箱格式不正确",
		"error.password_weak":                 "密码强度不足",
		"error.referral_code_invalid":         "推荐码无效",
		"error.invalid_credentials":           "账号或密码错误",
		"error.withdraw_action_invalid":       "提现审核动作无效",
		"error.admin_username_invalid":        "管理员账号不能为空",
		"error.user_not_found":                "用户不存在",
		"error.admin_not_found":               "管理员不存在",
		"error.wallet_account_not_found":      "钱包账户不存在",
		"error.key_not_found":                 "激活码不存在",
		"error.tier_not_found":                "佣金档位不存在",
		"error.withdraw_not_found":            "提现申请不存在",
		"error.commission_failure_not_found":  "佣金补发记录不存在",
		"error.wallet_insufficient_balance":   "钱包余额不足",
		"error.key_not_available":             "激活码已被使用",
		"error.key_already_owned":             "用户已持有激活码",
		"error.key_self_purchase":             "不能购买自己出售的激活码",
		"error.key_renewal_not_required":      "激活码仍可使用，无需续费",
		"error.key_withdraw_not_allowed":      "激活码当前不可提现",
		"error.key_withdraw_limit_exceeded":   "提现金额超过激活码剩余额度",
		"error.key_already_paused":            "激活码已暂停",
		"error.withdraw_status_invalid":       "提现申请状态不允许该操作",
		"error.commission_failure_closed":     "佣金补发记录已处理",
		"error.email_exists":                  "邮箱已被注册",
		"error.user_disabled":                 "用户已被禁用",
		"error.referral_already_bound":        "推荐关系已绑定",
		"error.referral_code_generate_failed": "推荐码生成失败",
		"error.admin_exists":                  "管理员账号已存在",
		"error.admin_role_locked":             "超级管理员不可变更角色",
		"error.admin_role_invalid":            "角色不存在",
		"error.persistence_failed":            "数据写入失败",
		"error.queue_unavailable":             "任务队列不可用",
	},
	LocaleTW: {
		"error.bad_request":                   "請求參數錯誤",
		"error.unauthorized":                  "未登入或登入已失效",
		"error.token_invalid":                 "登入憑證無效",
		"error.jwt_secret_missing":            "驗證金鑰未設定",
		"error.auth_header_missing":           "缺少 Authorization 請求標頭",
		"error.auth_header_invalid":           "Authorization 格式錯誤",
		"error.token_revoked":                 "登入憑證已失效，請重新登入",
		"error.rate_limited":                  "操作過於頻繁，請 %d 秒後再試",
		"error.rate_limit_unavailable":        "限流服務暫不可用",
		"error.forbidden":                     "無權限存取",
		"error.not_found":                     "資源不存在",
		"error.too_many_requests":             "請求過於頻繁，請稍後再試",
		"error.internal":                      "伺服器內部錯誤",
		"error.user_id_invalid":               "使用者識別無效",
		"error.admin_id_invalid":              "管理員識別無效",
		"error.user_id_type_invalid":          "使用者識別類型錯誤",
		"error.admin_id_type_invalid":         "管理員識別類型錯誤",
		"error.password_min_length":           "密碼長度至少為 %d 位",
		"error.password_require_letter":       "密碼必須包含字母",
		"error.password_require_number":       "密碼必須包含數字",
		"error.invalid_amount":                "金額無效",
		"error.invalid_user":                  "使用者參數無效",
		"error.key_code_required":             "啟用碼不能為空",
		"error.key_batch_invalid":             "啟用碼批次參數無效",
		"error.tier_name_required":            "檔位名稱不能為空",
		"error.tier_range_invalid":            "檔位價格區間無效",
		"error.tier_rate_invalid":             "檔位佣金不能為負數",
		"error.tier_overlap":                  "檔位價格區間與其他啟用檔位重疊",
		"error.email_invalid":                 "信箱格式不正確",
		"error.password_weak":                 "密碼強度不足",
		"error.referral_code_invalid":         "推薦碼無效",
		"error.invalid_credentials":           "帳號或密碼錯誤",
		"error.withdraw_action_invalid":       "提現審核動作無效",
		"error.admin_username_invalid":        "管理員帳號不能為空",
		"error.user_not_found":                "使用者不存在",
		"error.admin_not_found":               "管理員不存在",
		"error.wallet_account_not_found":      "錢包帳戶不存在",
		"error.key_not_found":                 "啟用碼不存在",
		"error.tier_not_found":                "佣金檔位不存在",
		"error.withdraw_not_found":            "提現申請不存在",
		"error.commission_failure_not_found":  "佣金補發記錄不存在",
		"error.wallet_insufficient_balance":   "錢包餘額不足",
		"error.key_not_available":             "啟用碼已被使用",
		"error.key_already_owned":             "使用者已持有啟用碼",
		"error.key_self_purchase":             "不能購買自己出售的啟用碼",
		"error.key_renewal_not_required":      "啟用碼仍可使用，無需續費",
		"error.key_withdraw_not_allowed":      "啟用碼目前不可提現",
		"error.key_withdraw_limit_exceeded":   "提現金額超過啟用碼剩餘額度",
		"error.key_already_paused":            "啟用碼已暫停",
		"error.withdraw_status_invalid":       "提現申請狀態不允許該操作",
		"error.commission_failure_closed":     "佣金補發記錄已處理",
		"error.email_exists":                  "信箱已被註冊",
		"error.user_disabled":                 "使用者已被停用",
		"error.referral_already_bound":        "推薦關係已綁定",
		"error.referral_code_generate_failed": "推薦碼產生失敗",
		"error.admin_exists":                  "管理員帳號已存在",
		"error.admin_role_locked":             "超級管理員不可變更角色",
		"error.admin_role_invalid":            "角色不存在",
		"error.persistence_failed":            "資料寫入失敗",
		"error.queue_unavailable":             "任務佇列不可用",
	},
	LocaleEN: {
		"error.bad_request":                   "Invalid request parameters",
		"error.unauthorized":                  "Not logged in or session expired",
		"error.token_invalid":                 "Invalid token",
		"error.jwt_secret_missing":            "Authentication secret is not configured",
		"error.auth_header_missing":           "Authorization header is missing",
		"error.auth_header_invalid":           "Authorization header is malformed",
		"error.token_revoked":                 "Token has been revoked, please sign in again",
		"error.rate_limited":                  "Too many attempts, retry in %d seconds",
		"error.rate_limit_unavailable":        "Rate limiter is unavailable",
		"error.forbidden":                     "Permission denied",
		"error.not_found":                     "Resource not found",
		"error.too_many_requests":             "Too many requests, please try again later",
		"error.internal":                      "Internal server error",
		"error.user_id_invalid":               "Invalid user id",
		"error.admin_id_invalid":              "Invalid admin id",
		"error.user_id_type_invalid":          "Invalid user id type",
		"error.admin_id_type_invalid":         "Invalid admin id type",
		"error.password_min_length":           "Password must be at least %d characters",
		"error.password_require_letter":       "Password must contain a letter",
		"error.password_require_number":       "Password must contain a number",
		"error.invalid_amount":                "Invalid amount",
		"error.invalid_user":                  "Invalid user",
		"error.key_code_required":             "Activation key code is required",
		"error.key_batch_invalid":             "Invalid key batch parameters",
		"error.tier_name_required":            "Tier name is required",
		"error.tier_range_invalid":            "Invalid tier price range",
		"error.tier_rate_invalid":             "Tier rates must not be negative",
		"error.tier_overlap":                  "Tier price range overlaps another active tier",
		"error.email_invalid":                 "Invalid email address",
		"error.password_weak":                 "Password is too weak",
		"error.referral_code_invalid":         "Invalid referral code",
		"error.invalid_credentials":           "Invalid username or password",
		"error.withdraw_action_invalid":       "Invalid withdraw review action",
		"error.admin_username_invalid":        "Admin username is required",
		"error.user_not_found":                "User not found",
		"error.admin_not_found":               "Admin not found",
		"error.wallet_account_not_found":      "Wallet account not found",
		"error.key_not_found":                 "Activation key not found",
		"error.tier_not_found":                "Commission tier not found",
		"error.withdraw_not_found":            "Withdraw request not found",
		"error.commission_failure_not_found":  "Commission failure not found",
		"error.wallet_insufficient_balance":   "Insufficient wallet balance",
		"error.key_not_available":             "Activation key is not available",
		"error.key_already_owned":             "User already owns an activation key",
		"error.key_self_purchase":             "Cannot purchase your own key",
		"error.key_renewal_not_required":      "Key is still active, renewal not required",
		"error.key_withdraw_not_allowed":      "Withdrawals are not allowed for this key",
		"error.key_withdraw_limit_exceeded":   "Amount exceeds remaining key allowance",
		"error.key_already_paused":            "Activation key is already paused",
		"error.withdraw_status_invalid":       "Withdraw request status does not allow this action",
		"error.commission_failure_closed":     "Commission failure already closed",
		"error.email_exists":                  "Email already registered",
		"error.user_disabled":                 "User is disabled",
		"error.referral_already_bound":        "Referrer already bound",
		"error.referral_code_generate_failed": "Failed to generate referral code",
		"error.admin_exists":                  "Admin username already exists",
		"error.admin_role_locked":             "Super admin role cannot be changed",
		"error.admin_role_invalid":            "Role does not exist",
		"error.persistence_failed":            "Failed to persist data",
		"error.queue_unavailable":             "Task queue unavailable",
	},
}
