package middleware

import (
	"net/http"
	"strings"
	"time"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"
	"wallet-service/pkg/apperror"
	"wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderAPIKey carries a scoped service secret.
	HeaderAPIKey = "X-API-Key"
	// HeaderRequestID is echoed back on every response.
	HeaderRequestID = "X-Request-ID"

	// Context keys
	CtxPrincipal = "principal"
)

// PermissionChecker is satisfied by service.PermissionGuard.
type PermissionChecker interface {
	Require(p domain.Principal, perm domain.Permission) error
	RequireUser(p domain.Principal) error
}

// RequestID assigns a request id, reusing an inbound X-Request-ID when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(response.RequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// Authenticate resolves the request credentials to a principal. A scoped
// secret in X-API-Key is evaluated before any bearer token.
func Authenticate(resolver ports.CredentialResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		creds := ports.Credentials{
			APIKey:      strings.TrimSpace(c.GetHeader(HeaderAPIKey)),
			BearerToken: bearerToken(c.GetHeader("Authorization")),
		}

		principal, err := resolver.Resolve(c.Request.Context(), creds)
		if err != nil {
			response.Error(c, err)
			return
		}

		c.Set(CtxPrincipal, *principal)
		c.Next()
	}
}

// RequirePermission rejects principals that do not hold perm.
func RequirePermission(guard PermissionChecker, perm domain.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := Principal(c)
		if !ok {
			response.Error(c, apperror.ErrAuthenticationRequired())
			return
		}
		if err := guard.Require(p, perm); err != nil {
			response.Error(c, err)
			return
		}
		c.Next()
	}
}

// RequireUser rejects every principal that was not authenticated by a
// session token.
func RequireUser(guard PermissionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := Principal(c)
		if !ok {
			response.Error(c, apperror.ErrAuthenticationRequired())
			return
		}
		if err := guard.RequireUser(p); err != nil {
			response.Error(c, err)
			return
		}
		c.Next()
	}
}

// Principal returns the principal set by Authenticate.
func Principal(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(CtxPrincipal)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(response.RequestIDKey)).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				response.Error(c, apperror.InternalError(nil))
			}
		}()
		c.Next()
	}
}
