package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"wallet-service/internal/adapter/http/dto"
	"wallet-service/internal/adapter/http/middleware"
	"wallet-service/internal/core/ports"
	"wallet-service/pkg/apperror"
	"wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	stateCookie       = "oauth_state"
	stateCookiePath   = "/api/v1/auth"
	stateCookieMaxAge = 600 // seconds
)

// AuthHandler handles the identity provider sign-in flow.
type AuthHandler struct {
	authSvc      ports.AuthService
	provider     ports.IdentityProvider
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. secureCookie marks the state
// cookie Secure and should be set whenever the service is served over TLS.
func NewAuthHandler(authSvc ports.AuthService, provider ports.IdentityProvider, secureCookie bool) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, provider: provider, secureCookie: secureCookie}
}

// BeginSignIn handles GET /api/v1/auth/google.
func (h *AuthHandler) BeginSignIn(c *gin.Context) {
	state, err := newState()
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, stateCookieMaxAge, stateCookiePath, "", h.secureCookie, true)
	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// Callback handles GET /api/v1/auth/google/callback.
func (h *AuthHandler) Callback(c *gin.Context) {
	expected, err := c.Cookie(stateCookie)
	state := c.Query("state")
	if err != nil || expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		response.Error(c, apperror.ErrInvalidOAuthState())
		return
	}
	// Single use
	c.SetCookie(stateCookie, "", -1, stateCookiePath, "", h.secureCookie, true)

	code := c.Query("code")
	if code == "" {
		response.Error(c, apperror.Validation("missing authorization code"))
		return
	}

	identity, err := h.provider.Exchange(c.Request.Context(), code)
	if err != nil {
		response.Error(c, apperror.Wrap(apperror.KindUnauthenticated, "AUTH_002", "Sign-in with the identity provider failed", err))
		return
	}

	result, err := h.authSvc.SignIn(c.Request.Context(), *identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditOwner, result.User.ID)
	c.Set(middleware.CtxAuditResource, result.User.ID.String())
	c.Set(middleware.CtxAuditDetails, map[string]any{"new_user": result.Created})

	response.OK(c, dto.SignInResponse{
		Token:        result.Token,
		ExpiresAt:    result.ExpiresAt,
		UserID:       result.User.ID.String(),
		Email:        result.User.Email,
		WalletNumber: result.Wallet.Number,
		NewUser:      result.Created,
	})
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HealthCheck handles GET /health, a deep health check verifying all dependencies.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
