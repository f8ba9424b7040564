package public

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adreward-next/internal/constants"
	"github.com/adreward-next/internal/http/response"
	"github.com/adreward-next/internal/models"
	"github.com/adreward-next/internal/provider"
	"github.com/adreward-next/internal/repository"
	"github.com/adreward-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

const (
	referrerID   uint = 1
	buyerID      uint = 2
	originatorID uint = 100
)

func setupKeyHandlerTest(t *testing.T) (*gin.Engine, *gorm.DB, *provider.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:public_key_handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	tierRepo := repository.NewCommissionTierRepository(db)
	keyRepo := repository.NewActivationKeyRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	withdrawRepo := repository.NewWithdrawRepository(db)

	wallet := service.NewWalletService(walletRepo, "INR")
	resolver := service.NewTierResolver(tierRepo, nil, 0)
	chain := service.NewReferralChainBuilder(userRepo, 6)
	distributor := service.NewCommissionDistributor(wallet, commissionRepo)
	engine := service.NewCommissionEngine(resolver, chain, distributor, wallet)

	c := &provider.Container{
		WalletService:          wallet,
		KeyService:             service.NewKeyService(keyRepo, userRepo, walletRepo, withdrawRepo, wallet, engine, nil),
		CommissionQueryService: service.NewCommissionQueryService(commissionRepo, userRepo, walletRepo),
	}
	h := New(c)

	r := gin.New()
	user := r.Group("/api/v1")
	user.Use(func(ctx *gin.Context) {
		if raw := ctx.GetHeader("X-Test-User"); raw != "" {
			var id uint
			if _, err := fmt.Sscanf(raw, "%d", &id); err == nil {
				ctx.Set("user_id", id)
			}
		}
		ctx.Next()
	})
	user.GET("/me/key", h.GetMyKey)
	user.POST("/keys/purchase", h.PurchaseKey)
	user.POST("/me/key/withdraw", h.WithdrawWithKey)
	user.GET("/me/wallet", h.GetMyWallet)
	user.GET("/me/commissions", h.ListMyCommissions)
	return r, db, c
}

func uintPtr(v uint) *uint {
	return &v
}

func seedKeyHandlerData(t *testing.T, db *gorm.DB, c *provider.Container) {
	t.Helper()
	now := time.Now()
	users := []models.User{
		{ID: referrerID, Email: "referrer@example.com", ReferralCode: "REFROOT1"},
		{ID: buyerID, Email: "buyer@example.com", ReferralCode: "REFBUY01", ReferredBy: uintPtr(referrerID)},
		{ID: originatorID, Email: "seller@example.com", ReferralCode: "REFSELL1"},
	}
	for i := range users {
		users[i].PasswordHash = "hash"
		users[i].Status = constants.UserStatusActive
		users[i].CreatedAt = now
		users[i].UpdatedAt = now
		if err := db.Create(&users[i]).Error; err != nil {
			t.Fatalf("create user failed: %v", err)
		}
	}

	tier := &models.CommissionTier{
		Name:     "Standard",
		MinPrice: models.NewMoneyFromInt(0),
		MaxPrice: models.NewMoneyFromInt(5000),
		IsActive: true,
	}
	tier.SetRates([]models.Money{models.NewMoneyFromInt(150)})
	if err := db.Create(tier).Error; err != nil {
		t.Fatalf("create tier failed: %v", err)
	}

	key := &models.ActivationKey{
		Code:             "KEY-HTTP-1",
		Price:            models.NewMoneyFromInt(1000),
		WithdrawalLimit:  models.NewMoneyFromInt(300),
		TotalWithdrawn:   models.NewMoneyFromInt(0),
		State:            constants.KeyStateUnassigned,
		OriginatorUserID: originatorID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := db.Create(key).Error; err != nil {
		t.Fatalf("create key failed: %v", err)
	}

	if _, _, err := c.WalletService.AdminAdjustBalance(service.WalletAdjustInput{
		UserID: buyerID,
		Delta:  models.NewMoneyFromInt(1200),
		Remark: "seed",
	}); err != nil {
		t.Fatalf("fund buyer failed: %v", err)
	}
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, userID uint, body interface{}) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("X-Test-User", fmt.Sprintf("%d", userID))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func TestPurchaseKeyHandlerFlow(t *testing.T) {
	r, db, c := setupKeyHandlerTest(t)
	seedKeyHandlerData(t, db, c)

	resp := doJSON(t, r, http.MethodPost, "/api/v1/keys/purchase", buyerID, map[string]string{"code": "key-http-1"})
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("purchase failed: code=%d msg=%s", resp.StatusCode, resp.Msg)
	}
	var result struct {
		Key   models.ActivationKey `json:"key"`
		Event models.KeyEvent      `json:"event"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("decode purchase data failed: %v", err)
	}
	if result.Key.State != constants.KeyStateActive || result.Event.EventType != constants.KeyEventPurchase {
		t.Fatalf("unexpected purchase result: %+v", result)
	}

	status := doJSON(t, r, http.MethodGet, "/api/v1/me/key", buyerID, nil)
	var keyStatus struct {
		HasKey bool   `json:"has_key"`
		Code   string `json:"code"`
		State  string `json:"state"`
	}
	if err := json.Unmarshal(status.Data, &keyStatus); err != nil {
		t.Fatalf("decode key status failed: %v", err)
	}
	if !keyStatus.HasKey || keyStatus.Code != "KEY-HTTP-1" || keyStatus.State != constants.KeyStateActive {
		t.Fatalf("unexpected key status: %+v", keyStatus)
	}

	commissions := doJSON(t, r, http.MethodGet, "/api/v1/me/commissions", referrerID, nil)
	var rows []models.ReferralCommission
	if err := json.Unmarshal(commissions.Data, &rows); err != nil {
		t.Fatalf("decode commissions failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Level != 1 || rows[0].Amount.String() != "150.00" {
		t.Fatalf("unexpected commissions: %+v", rows)
	}

	again := doJSON(t, r, http.MethodPost, "/api/v1/keys/purchase", buyerID, map[string]string{"code": "KEY-HTTP-1"})
	if again.StatusCode != response.CodeConflict {
		t.Fatalf("second purchase want 409 got %d", again.StatusCode)
	}
}

func TestPurchaseKeyHandlerRejections(t *testing.T) {
	r, db, c := setupKeyHandlerTest(t)
	seedKeyHandlerData(t, db, c)

	cases := []struct {
		name   string
		userID uint
		body   interface{}
		want   int
	}{
		{name: "anonymous", userID: 0, body: map[string]string{"code": "KEY-HTTP-1"}, want: response.CodeUnauthorized},
		{name: "missing code", userID: buyerID, body: map[string]string{}, want: response.CodeBadRequest},
		{name: "unknown code", userID: buyerID, body: map[string]string{"code": "NOPE"}, want: response.CodeNotFound},
		{name: "self purchase", userID: originatorID, body: map[string]string{"code": "KEY-HTTP-1"}, want: response.CodeConflict},
		{name: "insufficient balance", userID: referrerID, body: map[string]string{"code": "KEY-HTTP-1"}, want: response.CodeInsufficientBalance},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, r, http.MethodPost, "/api/v1/keys/purchase", tc.userID, tc.body)
			if resp.StatusCode != tc.want {
				t.Fatalf("status_code want %d got %d (%s)", tc.want, resp.StatusCode, resp.Msg)
			}
		})
	}
}

func TestWithdrawWithKeyHandler(t *testing.T) {
	r, db, c := setupKeyHandlerTest(t)
	seedKeyHandlerData(t, db, c)

	if resp := doJSON(t, r, http.MethodPost, "/api/v1/me/key/withdraw", buyerID, map[string]string{"amount": "10"}); resp.StatusCode != response.CodeNotFound {
		t.Fatalf("withdraw without key want 404 got %d", resp.StatusCode)
	}
	if resp := doJSON(t, r, http.MethodPost, "/api/v1/keys/purchase", buyerID, map[string]string{"code": "KEY-HTTP-1"}); resp.StatusCode != response.CodeOK {
		t.Fatalf("purchase failed: %d %s", resp.StatusCode, resp.Msg)
	}
	if resp := doJSON(t, r, http.MethodPost, "/api/v1/me/key/withdraw", buyerID, map[string]string{"amount": "abc"}); resp.StatusCode != response.CodeBadRequest {
		t.Fatalf("invalid amount want 400 got %d", resp.StatusCode)
	}
	resp := doJSON(t, r, http.MethodPost, "/api/v1/me/key/withdraw", buyerID, map[string]string{"amount": "120.50", "channel": "upi", "account": "buyer@upi"})
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("withdraw failed: %d %s", resp.StatusCode, resp.Msg)
	}

	wallet := doJSON(t, r, http.MethodGet, "/api/v1/me/wallet", buyerID, nil)
	if wallet.StatusCode != response.CodeOK || !bytes.Contains(wallet.Data, []byte(`"79.50"`)) {
		t.Fatalf("expected remaining balance 79.50, got %s", string(wallet.Data))
	}
}
