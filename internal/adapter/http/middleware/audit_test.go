package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"
	"wallet-service/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

// safeBuffer is a bytes.Buffer safe for concurrent writers.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func TestAuditLog_KeyRevoke(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)
	owner := uuid.New()
	keyID := uuid.New()

	mockAudit.EXPECT().Log(gomock.Any(), gomock.Any()).Do(
		func(_ context.Context, e ports.AuditEntry) {
			assert.Equal(t, domain.AuditActionKeyRevoke, e.Action)
			assert.Equal(t, "api_key", e.ResourceType)
			assert.Equal(t, keyID.String(), e.ResourceID)
			if assert.NotNil(t, e.OwnerID) {
				assert.Equal(t, owner, *e.OwnerID)
			}
			assert.Equal(t, "user", e.Details["principal"])
			assert.Equal(t, "curl/8.0", e.UserAgent)
		},
	)

	user := domain.NewUserPrincipal(owner)
	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.DELETE("/api/v1/keys/:id", withPrincipal(&user), func(c *gin.Context) {
		c.Set(CtxAuditResource, c.Param("id"))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/keys/"+keyID.String(), nil)
	req.Header.Set("User-Agent", "curl/8.0")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditLog_ServicePrincipalTransfer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)
	key := &domain.APIKey{ID: uuid.New(), OwnerID: uuid.New(), Permissions: domain.NewPermissionSet(domain.PermissionTransfer)}

	mockAudit.EXPECT().Log(gomock.Any(), gomock.Any()).Do(
		func(_ context.Context, e ports.AuditEntry) {
			assert.Equal(t, domain.AuditActionTransfer, e.Action)
			assert.Equal(t, "service", e.Details["principal"])
			assert.Equal(t, key.ID.String(), e.Details["api_key_id"])
			assert.Equal(t, "10.00", e.Details["amount"])
		},
	)

	p := domain.NewServicePrincipal(key)
	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/api/v1/wallet/transfer", withPrincipal(&p), func(c *gin.Context) {
		c.Set(CtxAuditDetails, map[string]any{"amount": "10.00"})
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/wallet/transfer", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditLog_SignInUsesAuditOwner(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)
	owner := uuid.New()

	mockAudit.EXPECT().Log(gomock.Any(), gomock.Any()).Do(
		func(_ context.Context, e ports.AuditEntry) {
			assert.Equal(t, domain.AuditActionSignIn, e.Action)
			if assert.NotNil(t, e.OwnerID) {
				assert.Equal(t, owner, *e.OwnerID)
			}
		},
	)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.GET("/api/v1/auth/google/callback", func(c *gin.Context) {
		c.Set(CtxAuditOwner, owner)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditLog_SkipsUnmappedAndFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No expectations - Log must not be called
	mockAudit := mocks.NewMockAuditService(ctrl)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.GET("/api/v1/wallet/balance", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/v1/wallet/transfer", func(c *gin.Context) { c.Status(http.StatusConflict) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/wallet/transfer", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}
