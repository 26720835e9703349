package handler

import (
	"wallet-service/internal/adapter/http/middleware"
	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Mode           string // gin mode; empty means release
	MaxBodyBytes   int64
	SecureCookies  bool
	Resolver       ports.CredentialResolver
	Guard          middleware.PermissionChecker
	AuthSvc        ports.AuthService
	Identity       ports.IdentityProvider // nil = sign-in routes disabled
	KeySvc         ports.APIKeyService
	Ledger         ports.LedgerService
	WebhookSvc     ports.WebhookService
	AuditSvc       ports.AuditService // nil = audit logging disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(deps.MaxBodyBytes))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep, verifies every configured dependency)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// API documentation
	docs := r.Group("/swagger")
	{
		docs.GET("", SwaggerUI)
		docs.GET("/spec", SwaggerSpec)
	}

	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	if deps.Identity != nil {
		authHandler := NewAuthHandler(deps.AuthSvc, deps.Identity, deps.SecureCookies)
		auth := v1.Group("/auth")
		{
			auth.GET("/google", authHandler.BeginSignIn)
			auth.GET("/google/callback", authHandler.Callback)
		}
	}

	authenticate := middleware.Authenticate(deps.Resolver)
	can := func(p domain.Permission) gin.HandlerFunc {
		return middleware.RequirePermission(deps.Guard, p)
	}

	// --- Key management (session token only) ---
	keyHandler := NewKeyHandler(deps.KeySvc)
	keys := v1.Group("/keys", authenticate, middleware.RequireUser(deps.Guard))
	{
		keys.POST("/create", keyHandler.Create)
		keys.POST("/rollover", keyHandler.Rollover)
		keys.GET("", keyHandler.List)
		keys.DELETE("/:id", keyHandler.Revoke)
	}

	// --- Wallet (session token or scoped API key) ---
	walletHandler := NewWalletHandler(deps.Ledger, deps.WebhookSvc, deps.Logger)
	wallet := v1.Group("/wallet")
	{
		// Authenticated by signature, not by credential
		wallet.POST("/paystack/webhook", walletHandler.PaystackWebhook)

		wallet.POST("/deposit", authenticate, can(domain.PermissionDeposit), walletHandler.Deposit)
		wallet.GET("/deposit/:reference/status", authenticate, can(domain.PermissionRead), walletHandler.DepositStatus)
		wallet.GET("/balance", authenticate, can(domain.PermissionRead), walletHandler.GetBalance)
		wallet.POST("/transfer", authenticate, can(domain.PermissionTransfer), walletHandler.Transfer)
		wallet.GET("/transactions", authenticate, can(domain.PermissionRead), walletHandler.ListTransactions)
	}

	return r
}
