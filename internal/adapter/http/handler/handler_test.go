package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wallet-service/internal/adapter/http/middleware"
	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"
	"wallet-service/internal/core/ports/mocks"
	"wallet-service/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func asUser(c *gin.Context, owner uuid.UUID) {
	c.Set(middleware.CtxPrincipal, domain.NewUserPrincipal(owner))
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	data, ok := decodeBody(t, w)["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %s", w.Body.String())
	return data
}

// --- Auth Handler Tests ---

func TestBeginSignIn_SetsStateAndRedirects(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	idp := mocks.NewMockIdentityProvider(ctrl)
	h := NewAuthHandler(mocks.NewMockAuthService(ctrl), idp, true)

	var state string
	idp.EXPECT().AuthCodeURL(gomock.Any()).DoAndReturn(func(s string) string {
		state = s
		return "https://idp.example.com/auth?state=" + s
	})

	c, w := newContext(http.MethodGet, "/api/v1/auth/google", "")
	h.BeginSignIn(c)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Len(t, state, 32)
	assert.Equal(t, "https://idp.example.com/auth?state="+state, w.Header().Get("Location"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, stateCookie, cookies[0].Name)
	assert.Equal(t, state, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
}

func TestCallback_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	idp := mocks.NewMockIdentityProvider(ctrl)
	authSvc := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(authSvc, idp, false)

	identity := &domain.ExternalIdentity{Subject: "sub-1", Email: "ada@example.com"}
	user := domain.User{ID: uuid.New(), Email: "ada@example.com"}
	expires := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	idp.EXPECT().Exchange(gomock.Any(), "auth-code").Return(identity, nil)
	authSvc.EXPECT().SignIn(gomock.Any(), *identity).Return(&ports.SignInResult{
		User:      user,
		Wallet:    domain.Wallet{Number: "0123456789012"},
		Token:     "jwt-token",
		ExpiresAt: expires,
		Created:   true,
	}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/auth/google/callback?state=s1&code=auth-code", "")
	c.Request.AddCookie(&http.Cookie{Name: stateCookie, Value: "s1"})
	h.Callback(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "jwt-token", data["token"])
	assert.Equal(t, "0123456789012", data["wallet_number"])
	assert.Equal(t, true, data["new_user"])

	owner, ok := c.Get(middleware.CtxAuditOwner)
	require.True(t, ok)
	assert.Equal(t, user.ID, owner)
}

func TestCallback_StateMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No Exchange, no SignIn
	h := NewAuthHandler(mocks.NewMockAuthService(ctrl), mocks.NewMockIdentityProvider(ctrl), false)

	tests := []struct {
		name   string
		cookie string
		query  string
	}{
		{"no cookie", "", "state=s1&code=c"},
		{"different state", "s1", "state=s2&code=c"},
		{"empty state", "s1", "code=c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newContext(http.MethodGet, "/api/v1/auth/google/callback?"+tt.query, "")
			if tt.cookie != "" {
				c.Request.AddCookie(&http.Cookie{Name: stateCookie, Value: tt.cookie})
			}
			h.Callback(c)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "AUTH_006", decodeBody(t, w)["error_code"])
		})
	}
}

func TestCallback_ExchangeFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	idp := mocks.NewMockIdentityProvider(ctrl)
	h := NewAuthHandler(mocks.NewMockAuthService(ctrl), idp, false)
	idp.EXPECT().Exchange(gomock.Any(), "bad").Return(nil, errors.New("invalid_grant"))

	c, w := newContext(http.MethodGet, "/api/v1/auth/google/callback?state=s&code=bad", "")
	c.Request.AddCookie(&http.Cookie{Name: stateCookie, Value: "s"})
	h.Callback(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_002", decodeBody(t, w)["error_code"])
}

// --- Key Handler Tests ---

func TestCreateKey_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	keySvc := mocks.NewMockAPIKeyService(ctrl)
	h := NewKeyHandler(keySvc)
	owner := uuid.New()
	keyID := uuid.New()

	keySvc.EXPECT().Create(gomock.Any(), ports.CreateKeyRequest{
		OwnerID:     owner,
		Name:        "billing",
		Permissions: []string{"read", "deposit"},
		Expiry:      "1M",
	}).Return(&domain.IssuedAPIKey{
		Key:    domain.APIKey{ID: keyID, Name: "billing", Permissions: domain.NewPermissionSet(domain.PermissionRead, domain.PermissionDeposit)},
		Secret: "sk_secret",
	}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/keys/create", `{"name":" billing ","permissions":["read","deposit"],"expiry":"1M"}`)
	asUser(c, owner)
	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "sk_secret", data["api_key"])
	assert.Equal(t, keyID.String(), data["id"])
	assert.Equal(t, keyID.String(), c.GetString(middleware.CtxAuditResource))
}

func TestCreateKey_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No Create
	h := NewKeyHandler(mocks.NewMockAPIKeyService(ctrl))

	bodies := []string{
		`{}`,
		`{"name":"k","permissions":["admin"],"expiry":"1D"}`,
		`{"name":"k","permissions":["read"],"expiry":"2W"}`,
		`{"name":"k","permissions":[],"expiry":"1D"}`,
	}
	for _, body := range bodies {
		c, w := newContext(http.MethodPost, "/api/v1/keys/create", body)
		asUser(c, uuid.New())
		h.Create(c)

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "SYS_002", decodeBody(t, w)["error_code"], body)
	}
}

func TestCreateKey_LimitReached(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	keySvc := mocks.NewMockAPIKeyService(ctrl)
	h := NewKeyHandler(keySvc)
	keySvc.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrKeyLimitReached(domain.MaxActiveKeys))

	c, w := newContext(http.MethodPost, "/api/v1/keys/create", `{"name":"k","permissions":["read"],"expiry":"1D"}`)
	asUser(c, uuid.New())
	h.Create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "KEY_005", decodeBody(t, w)["error_code"])
}

func TestRolloverKey_PassesExpiredKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	keySvc := mocks.NewMockAPIKeyService(ctrl)
	h := NewKeyHandler(keySvc)
	owner := uuid.New()
	oldID := uuid.New()

	keySvc.EXPECT().Rollover(gomock.Any(), owner, oldID, "1Y").Return(&domain.IssuedAPIKey{
		Key:    domain.APIKey{ID: uuid.New()},
		Secret: "sk_new",
	}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/keys/rollover", `{"expired_key_id":"`+oldID.String()+`","expiry":"1Y"}`)
	asUser(c, owner)
	h.Rollover(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "sk_new", dataOf(t, w)["api_key"])
}

func TestListKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	keySvc := mocks.NewMockAPIKeyService(ctrl)
	h := NewKeyHandler(keySvc)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }
	owner := uuid.New()

	keySvc.EXPECT().List(gomock.Any(), owner).Return([]domain.APIKey{
		{ID: uuid.New(), Name: "live", KeyHash: "h1", IsActive: true, ExpiresAt: now.Add(time.Hour), Permissions: domain.FullPermissions},
		{ID: uuid.New(), Name: "old", KeyHash: "h2", IsActive: true, ExpiresAt: now.Add(-time.Hour)},
	}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/keys", "")
	asUser(c, owner)
	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	items := decodeBody(t, w)["data"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, false, items[0].(map[string]interface{})["is_expired"])
	assert.Equal(t, true, items[1].(map[string]interface{})["is_expired"])
	assert.NotContains(t, w.Body.String(), "h1")
}

func TestRevokeKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	keySvc := mocks.NewMockAPIKeyService(ctrl)
	h := NewKeyHandler(keySvc)
	owner := uuid.New()
	keyID := uuid.New()

	keySvc.EXPECT().Revoke(gomock.Any(), owner, keyID).Return(nil)

	c, w := newContext(http.MethodDelete, "/api/v1/keys/"+keyID.String(), "")
	c.Params = gin.Params{{Key: "id", Value: keyID.String()}}
	asUser(c, owner)
	h.Revoke(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, dataOf(t, w)["revoked"])

	c, w = newContext(http.MethodDelete, "/api/v1/keys/nope", "")
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	asUser(c, owner)
	h.Revoke(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKeyHandler_NoPrincipal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewKeyHandler(mocks.NewMockAPIKeyService(ctrl))
	c, w := newContext(http.MethodGet, "/api/v1/keys", "")
	h.List(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- Wallet Handler Tests ---

type walletDeps struct {
	h       *WalletHandler
	ledger  *mocks.MockLedgerService
	webhook *mocks.MockWebhookService
	owner   uuid.UUID
	wallet  *domain.Wallet
}

func setupWalletHandler(t *testing.T, ctrl *gomock.Controller) *walletDeps {
	t.Helper()
	d := &walletDeps{
		ledger:  mocks.NewMockLedgerService(ctrl),
		webhook: mocks.NewMockWebhookService(ctrl),
		owner:   uuid.New(),
	}
	d.wallet = &domain.Wallet{ID: uuid.New(), OwnerID: d.owner, Number: "1111111111111", Balance: decimal.RequireFromString("10000.00")}
	d.h = NewWalletHandler(d.ledger, d.webhook, zerolog.Nop())
	return d
}

func (d *walletDeps) expectWallet() {
	d.ledger.EXPECT().GetWalletByOwner(gomock.Any(), d.owner).Return(d.wallet, nil)
}

func TestGetBalance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := setupWalletHandler(t, ctrl)
	d.expectWallet()

	c, w := newContext(http.MethodGet, "/api/v1/wallet/balance", "")
	asUser(c, d.owner)
	d.h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "10000", data["balance"])
	assert.Equal(t, "1111111111111", data["wallet_number"])
	assert.Equal(t, "NGN", data["currency"])
}

func TestGetBalance_NoWallet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := setupWalletHandler(t, ctrl)
	d.ledger.EXPECT().GetWalletByOwner(gomock.Any(), d.owner).Return(nil, apperror.ErrNotFound("Wallet"))

	c, w := newContext(http.MethodGet, "/api/v1/wallet/balance", "")
	asUser(c, d.owner)
	d.h.GetBalance(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeposit_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := setupWalletHandler(t, ctrl)
	d.expectWallet()

	d.ledger.EXPECT().InitializeDeposit(gomock.Any(), d.wallet.ID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ uuid.UUID, amount decimal.Decimal) (*ports.DepositInit, error) {
			assert.True(t, decimal.RequireFromString("5000").Equal(amount))
			return &ports.DepositInit{Reference: "DEP_ABC", AuthorizationURL: "https://checkout/abc"}, nil
		},
	)

	c, w := newContext(http.MethodPost, "/api/v1/wallet/deposit", `{"amount":"5000.00"}`)
	asUser(c, d.owner)
	d.h.Deposit(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "DEP_ABC", data["reference"])
	assert.Equal(t, "https://checkout/abc", data["authorization_url"])
	assert.Equal(t, "DEP_ABC", c.GetString(middleware.CtxAuditResource))
}

func TestDeposit_GatewayUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := setupWalletHandler(t, ctrl)
	d.expectWallet()
	d.ledger.EXPECT().InitializeDeposit(gomock.Any(), d.wallet.ID, gomock.Any()).
		Return(nil, apperror.ErrPaymentUnavailable(ports.ErrGatewayUnavailable))

	c, w := newContext(http.MethodPost, "/api/v1/wallet/deposit", `{"amount":100}`)
	asUser(c, d.owner)
	d.h.Deposit(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "PAY_001", decodeBody(t, w)["error_code"])
}

func TestDeposit_MalformedAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := setupWalletHandler(t, ctrl)

	// Rejected before the wallet lookup
	c, w := newContext(http.MethodPost, "/api/v1/wallet/deposit", `{"amount":"a lot"}`)
	asUser(c, d.owner)
	d.h.Deposit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDepositStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := setupWalletHandler(t, ctrl)
	d.expectWallet()

	paidAt := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	d.ledger.EXPECT().GetDepositStatus(gomock.Any(), d.wallet.ID, "DEP_1").Return(&ports.DepositStatus{
		Reference: "DEP_1",
		Status:    domain.TransactionStatusSuccess,
		Amount:    decimal.RequireFromString("5000"),
		Currency:  "NGN",
		PaidAt:    &paidAt,
	}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/wallet/deposit/DEP_1/status", "")
	c.Params = gin.Params{{Key: "reference", Value: "DEP_1"}}
	asUser(c, d.owner)
	d.h.DepositStatus(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "SUCCESS", data["status"])
	assert.Equal(t, "2026-04-02T10:00:00Z", data["paid_at"])
}

func TestTransfer_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := setupWalletHandler(t, ctrl)
	d.expectWallet()

	d.ledger.EXPECT().Transfer(gomock.Any(), d.wallet.ID, "2222222222222", gomock.Any()).Return(&ports.TransferResult{
		Reference:       "TRF_1",
		Amount:          decimal.RequireFromString("1000"),
		RecipientNumber: "2222222222222",
		SenderBalance:   decimal.RequireFromString("9000"),
	}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/wallet/transfer", `{"wallet_number":"2222222222222","amount":1000}`)
	asUser(c, d.owner)
	d.h.Transfer(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "success", data["status"])
	assert.Equal(t, "9000", data["balance"])

	details, ok := c.Get(middleware.CtxAuditDetails)
	require.True(t, ok)
	assert.Equal(t, "1000.00", details.(map[string]any)["amount"])
}

func TestTransfer_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := setupWalletHandler(t, ctrl)

	// Malformed recipient: no ledger call at all
	c, w := newContext(http.MethodPost, "/api/v1/wallet/transfer", `{"wallet_number":"12","amount":1}`)
	asUser(c, d.owner)
	d.h.Transfer(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	d.expectWallet()
	d.ledger.EXPECT().Transfer(gomock.Any(), d.wallet.ID, "2222222222222", gomock.Any()).Return(nil, apperror.ErrInsufficientFunds())

	c, w = newContext(http.MethodPost, "/api/v1/wallet/transfer", `{"wallet_number":"2222222222222","amount":"20000"}`)
	asUser(c, d.owner)
	d.h.Transfer(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "WAL_001", decodeBody(t, w)["error_code"])
}

func TestListTransactions_Pagination(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := setupWalletHandler(t, ctrl)
	d.expectWallet()

	counterpart := "2222222222222"
	d.ledger.EXPECT().ListTransactions(gomock.Any(), ports.TransactionListParams{
		WalletID: d.wallet.ID,
		Page:     2,
		PageSize: 20,
	}).Return([]domain.Transaction{
		{ID: uuid.New(), Reference: "TRF_1", Kind: domain.TransactionKindTransfer, Status: domain.TransactionStatusSuccess, Amount: decimal.NewFromInt(10), CounterpartNumber: &counterpart},
	}, int64(41), nil)

	c, w := newContext(http.MethodGet, "/api/v1/wallet/transactions?page=2&page_size=500", "")
	asUser(c, d.owner)
	d.h.ListTransactions(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "debit", items[0].(map[string]interface{})["direction"])
	assert.Equal(t, float64(41), data["total"])
	assert.Equal(t, float64(3), data["total_pages"])
}

func TestListTransactions_ServiceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := setupWalletHandler(t, ctrl)
	d.expectWallet()
	d.ledger.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).Return(nil, int64(0), apperror.InternalError(errors.New("db down")))

	c, w := newContext(http.MethodGet, "/api/v1/wallet/transactions", "")
	asUser(c, d.owner)
	d.h.ListTransactions(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// --- Webhook Tests ---

func TestPaystackWebhook(t *testing.T) {
	body := `{"event":"charge.success","data":{"reference":"DEP_1","amount":100}}`

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"accepted", nil, http.StatusOK},
		{"bad signature", apperror.ErrInvalidSignature(), http.StatusUnauthorized},
		{"unparseable", apperror.Validation("malformed"), http.StatusBadRequest},
		{"credit failed", apperror.InternalError(errors.New("db down")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			d := setupWalletHandler(t, ctrl)

			d.webhook.EXPECT().Handle(gomock.Any(), []byte(body), "sig-hex").Return(tt.err)

			c, w := newContext(http.MethodPost, "/api/v1/wallet/paystack/webhook", body)
			c.Request.Header.Set(HeaderPaystackSignature, "sig-hex")
			d.h.PaystackWebhook(c)

			assert.Equal(t, tt.status, w.Code)
			if tt.err == nil {
				assert.JSONEq(t, `{"status":true}`, w.Body.String())
			}
		})
	}
}

// --- Health Check & Docs ---

func TestHealthCheck(t *testing.T) {
	c, w := newContext(http.MethodGet, "/health", "")
	HealthCheck()(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeBody(t, w)["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := mocks.NewMockHealthChecker(ctrl)
	db.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))
	db.EXPECT().Name().Return("postgresql").AnyTimes()

	c, w := newContext(http.MethodGet, "/health", "")
	HealthCheck(db)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "degraded", resp["status"])
	deps := resp["dependencies"].(map[string]interface{})
	assert.Equal(t, "unhealthy", deps["postgresql"].(map[string]interface{})["status"])
}

func TestSwagger(t *testing.T) {
	c, w := newContext(http.MethodGet, "/swagger", "")
	SwaggerUI(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/swagger/spec")

	c, w = newContext(http.MethodGet, "/swagger/spec", "")
	SwaggerSpec(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("openapi: 3.0.3")))
	assert.Contains(t, w.Body.String(), "/wallet/paystack/webhook")
}
