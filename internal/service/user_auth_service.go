package service

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/adreward-next/internal/config"
	"github.com/adreward-next/internal/constants"
	"github.com/adreward-next/internal/logger"
	"github.com/adreward-next/internal/models"
	"github.com/adreward-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// referralBindMaxWalk 绑定上级时向上检查环路的最大步数
const referralBindMaxWalk = 64

// UserAuthService 用户认证服务
type UserAuthService struct {
	cfg        *config.Config
	userRepo   repository.UserRepository
	walletRepo repository.WalletRepository
	walletSvc  *WalletService
}

// NewUserAuthService 创建用户认证服务
func NewUserAuthService(cfg *config.Config, userRepo repository.UserRepository, walletRepo repository.WalletRepository, walletSvc *WalletService) *UserAuthService {
	return &UserAuthService{
		cfg:        cfg,
		userRepo:   userRepo,
		walletRepo: walletRepo,
		walletSvc:  walletSvc,
	}
}

// RegisterInput 注册参数
type RegisterInput struct {
	Email        string
	Password     string
	DisplayName  string
	ReferralCode string
	Locale       string
}

// UserJWTClaims 用户 JWT 声明
type UserJWTClaims struct {
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// GenerateUserJWT 生成用户 JWT Token
func (s *UserAuthService) GenerateUserJWT(user *models.User, expireHours int) (string, time.Time, error) {
	resolvedHours := expireHours
	if resolvedHours <= 0 {
		resolvedHours = resolveUserJWTExpireHours(s.cfg.UserJWT)
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(resolvedHours) * time.Hour)
	claims := UserJWTClaims{
		UserID:       user.ID,
		Email:        user.Email,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.UserJWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseUserJWT 解析用户 JWT Token
func (s *UserAuthService) ParseUserJWT(tokenString string) (*UserJWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &UserJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.UserJWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*UserJWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("无效的 token")
}

// Register 用户注册。
// 推荐码对应的上级在注册时写入一次，之后不可修改。
func (s *UserAuthService) Register(input RegisterInput) (*models.User, string, time.Time, error) {
	normalized, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if err := validatePassword(s.cfg.Security.PasswordPolicy, input.Password); err != nil {
		return nil, "", time.Time{}, err
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = resolveNicknameFromEmail(normalized)
	}
	locale := strings.TrimSpace(input.Locale)
	if locale == "" {
		locale = "zh-CN"
	}
	referralCode := strings.ToUpper(strings.TrimSpace(input.ReferralCode))

	var user *models.User
	err = s.walletRepo.Transaction(func(tx *gorm.DB) error {
		userRepo := s.userRepo.WithTx(tx)
		exist, err := userRepo.GetByEmail(normalized)
		if err != nil {
			return wrapPersistence(err)
		}
		if exist != nil {
			return ErrEmailExists
		}

		var parentID *uint
		if referralCode != "" {
			parent, err := userRepo.GetByReferralCode(referralCode)
			if err != nil {
				return wrapPersistence(err)
			}
			if parent == nil || parent.Status != constants.UserStatusActive {
				return ErrReferralCodeInvalid
			}
			id := parent.ID
			parentID = &id
		}

		code, err := s.allocateReferralCode(userRepo)
		if err != nil {
			return err
		}

		now := time.Now()
		user = &models.User{
			Email:        normalized,
			PasswordHash: string(hashedPassword),
			DisplayName:  displayName,
			Locale:       locale,
			Status:       constants.UserStatusActive,
			ReferralCode: code,
			ReferredBy:   parentID,
			LastLoginAt:  &now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := userRepo.Create(user); err != nil {
			if isUniqueViolation(err) {
				return ErrEmailExists
			}
			return wrapPersistence(err)
		}

		accountIDs := []uint{user.ID}
		if parentID != nil {
			accountIDs = append(accountIDs, *parentID)
		}
		if err := s.walletSvc.LockAccountsInTx(tx, accountIDs); err != nil {
			return wrapPersistence(err)
		}
		if parentID != nil {
			if err := s.walletRepo.WithTx(tx).IncrementReferralCounters(*parentID, 1, 0); err != nil {
				return wrapPersistence(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", time.Time{}, wrapPersistence(err)
	}

	token, expiresAt, err := s.GenerateUserJWT(user, 0)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	logger.Infow("user_registered",
		"user_id", user.ID,
		"referred_by", user.ReferredBy,
	)
	return user, token, expiresAt, nil
}

// Login 用户登录
func (s *UserAuthService) Login(email, password string) (*models.User, string, time.Time, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	user, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return nil, "", time.Time{}, wrapPersistence(err)
	}
	if user == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if strings.ToLower(user.Status) != constants.UserStatusActive {
		return nil, "", time.Time{}, ErrUserDisabled
	}

	token, expiresAt, err := s.GenerateUserJWT(user, 0)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(user); err != nil {
		return nil, "", time.Time{}, wrapPersistence(err)
	}
	return user, token, expiresAt, nil
}

// BindReferrer 为未绑定上级且尚未激活的用户补绑推荐人
func (s *UserAuthService) BindReferrer(userID uint, referralCode string) (*models.User, error) {
	if userID == 0 {
		return nil, ErrInvalidUserID
	}
	code := strings.ToUpper(strings.TrimSpace(referralCode))
	if code == "" {
		return nil, ErrReferralCodeInvalid
	}
	var user *models.User
	err := s.walletRepo.Transaction(func(tx *gorm.DB) error {
		userRepo := s.userRepo.WithTx(tx)
		current, err := userRepo.GetByIDForUpdate(userID)
		if err != nil {
			return wrapPersistence(err)
		}
		if current == nil {
			return ErrUserNotFound
		}
		if current.ReferredBy != nil || current.ActivatedAt != nil {
			return ErrReferralAlreadyBound
		}
		parent, err := userRepo.GetByReferralCode(code)
		if err != nil {
			return wrapPersistence(err)
		}
		if parent == nil || parent.ID == current.ID || parent.Status != constants.UserStatusActive {
			return ErrReferralCodeInvalid
		}
		if err := ensureNotDescendant(userRepo, parent, current.ID); err != nil {
			return err
		}

		parentID := parent.ID
		current.ReferredBy = &parentID
		current.UpdatedAt = time.Now()
		if err := userRepo.Update(current); err != nil {
			return wrapPersistence(err)
		}
		if err := s.walletSvc.LockAccountsInTx(tx, []uint{parentID}); err != nil {
			return wrapPersistence(err)
		}
		if err := s.walletRepo.WithTx(tx).IncrementReferralCounters(parentID, 1, 0); err != nil {
			return wrapPersistence(err)
		}
		user = current
		return nil
	})
	if err != nil {
		return nil, wrapPersistence(err)
	}
	return user, nil
}

// ChangePassword 登录态修改密码，旧 Token 全部失效
func (s *UserAuthService) ChangePassword(userID uint, oldPassword, newPassword string) error {
	if userID == 0 {
		return ErrInvalidUserID
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return wrapPersistence(err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if err := validatePassword(s.cfg.Security.PasswordPolicy, newPassword); err != nil {
		return err
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hashedPassword)
	user.UpdatedAt = time.Now()
	user.TokenVersion++
	if err := s.userRepo.Update(user); err != nil {
		return wrapPersistence(err)
	}
	return nil
}

// UpdateProfile 更新用户资料
func (s *UserAuthService) UpdateProfile(userID uint, displayName, locale *string) (*models.User, error) {
	if userID == 0 {
		return nil, ErrInvalidUserID
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if displayName != nil {
		if trimmed := strings.TrimSpace(*displayName); trimmed != "" {
			user.DisplayName = trimmed
		}
	}
	if locale != nil {
		if trimmed := strings.TrimSpace(*locale); trimmed != "" {
			user.Locale = trimmed
		}
	}
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(user); err != nil {
		return nil, wrapPersistence(err)
	}
	return user, nil
}

// GetUserByID 获取用户信息
func (s *UserAuthService) GetUserByID(id uint) (*models.User, error) {
	if id == 0 {
		return nil, ErrInvalidUserID
	}
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserAuthService) allocateReferralCode(userRepo repository.UserRepository) (string, error) {
	for i := 0; i < codeGenerateAttempts; i++ {
		code, err := generateRandomCode(referralCodeLength)
		if err != nil {
			return "", err
		}
		exist, err := userRepo.GetByReferralCode(code)
		if err != nil {
			return "", wrapPersistence(err)
		}
		if exist == nil {
			return code, nil
		}
	}
	return "", ErrReferralCodeGenerateLimit
}

// ensureNotDescendant 沿 parent 的上级链向上查找，出现 userID 说明会形成环
func ensureNotDescendant(userRepo repository.UserRepository, parent *models.User, userID uint) error {
	current := parent
	for i := 0; i < referralBindMaxWalk && current != nil && current.ReferredBy != nil; i++ {
		if *current.ReferredBy == userID {
			return ErrReferralCodeInvalid
		}
		next, err := userRepo.GetByID(*current.ReferredBy)
		if err != nil {
			return wrapPersistence(err)
		}
		current = next
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}

// NormalizeEmail 规范化邮箱（对外暴露）
func NormalizeEmail(email string) (string, error) {
	return normalizeEmail(email)
}

func resolveUserJWTExpireHours(cfg config.JWTConfig) int {
	if cfg.ExpireHours <= 0 {
		return 24
	}
	return cfg.ExpireHours
}

func resolveNicknameFromEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return email
	}
	return email[:at]
}
