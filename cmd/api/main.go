package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-service/config"
	httpHandler "wallet-service/internal/adapter/http/handler"
	"wallet-service/internal/adapter/identity/oidc"
	natsEvents "wallet-service/internal/adapter/messaging/nats"
	"wallet-service/internal/adapter/paystack"
	"wallet-service/internal/adapter/storage/memory"
	pgStorage "wallet-service/internal/adapter/storage/postgres"
	redisStorage "wallet-service/internal/adapter/storage/redis"
	"wallet-service/internal/core/ports"
	"wallet-service/internal/service"
	"wallet-service/pkg/logger"

	"github.com/rs/zerolog"
)

// repositories is the storage backend selected by storage.driver.
type repositories struct {
	users      ports.UserRepository
	wallets    ports.WalletRepository
	txns       ports.TransactionRepository
	keys       ports.APIKeyRepository
	audit      ports.AuditRepository
	transactor ports.DBTransactor
	health     ports.HealthChecker
	close      func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repositories, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		log.Warn().Msg("Using in-memory storage, data is lost on exit")
		store := memory.NewStore()
		return &repositories{
			users:      memory.NewUserRepo(store),
			wallets:    memory.NewWalletRepo(store),
			txns:       memory.NewTransactionRepo(store),
			keys:       memory.NewAPIKeyRepo(store),
			audit:      memory.NewAuditRepo(store),
			transactor: store,
			health:     store,
			close:      func() {},
		}, nil
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	return &repositories{
		users:      pgStorage.NewUserRepo(pool),
		wallets:    pgStorage.NewWalletRepo(pool),
		txns:       pgStorage.NewTransactionRepo(pool),
		keys:       pgStorage.NewAPIKeyRepo(pool),
		audit:      pgStorage.NewAuditRepo(pool),
		transactor: pgStorage.NewTransactor(pool),
		health:     pgStorage.NewHealthCheck(pool),
		close:      pool.Close,
	}, nil
}

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting wallet service")

	ctx := context.Background()

	repos, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer repos.close()
	healthCheckers := []ports.HealthChecker{repos.health}

	// Last-used throttle: Redis when enabled, in-process otherwise
	var throttle ports.UsageThrottle = memory.NewUsageThrottle()
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		throttle = redisStorage.NewUsageThrottle(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	}

	// Ledger events (optional)
	var events ports.EventPublisher
	nc, err := natsEvents.Connect(cfg.NATS.URL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	if nc != nil {
		defer nc.Close()
		events = natsEvents.NewPublisher(nc, log)
		healthCheckers = append(healthCheckers, natsEvents.NewHealthCheck(nc))
	}

	// Identity provider (optional outside release mode)
	var identity ports.IdentityProvider
	if cfg.OIDC.ClientID != "" {
		provider, err := oidc.NewProvider(ctx, cfg.OIDC)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize identity provider")
		}
		identity = provider
	} else {
		log.Warn().Msg("OIDC client not configured, sign-in routes disabled")
	}

	// Core services
	hasher, err := service.NewBlakeSecretHasher(cfg.APIKey.HashPepper)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize secret hasher")
	}
	tokenSvc, err := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Algorithm, cfg.JWT.Expiry, cfg.JWT.Issuer)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token service")
	}
	sigSvc := service.NewHMACSignatureService(cfg.Paystack.SigningSecret())
	gateway := paystack.NewClient(cfg.Paystack, &http.Client{}, log)

	// Business services
	resolver := service.NewCredentialResolver(repos.keys, repos.users, tokenSvc, hasher, throttle, cfg.APIKey.LastUsedWindow, log)
	ledger := service.NewLedgerService(repos.wallets, repos.txns, repos.users, repos.transactor, gateway, events, log)
	authSvc := service.NewAuthService(repos.users, repos.wallets, repos.transactor, tokenSvc, log)
	keySvc := service.NewAPIKeyService(repos.keys, repos.transactor, hasher, log)
	webhookSvc := service.NewWebhookService(ledger, sigSvc, log)
	auditSvc := service.NewAuditService(repos.audit, log)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Mode:           cfg.Server.Mode,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		SecureCookies:  cfg.Server.Mode == "release",
		Resolver:       resolver,
		Guard:          service.NewPermissionGuard(),
		AuthSvc:        authSvc,
		Identity:       identity,
		KeySvc:         keySvc,
		Ledger:         ledger,
		WebhookSvc:     webhookSvc,
		AuditSvc:       auditSvc,
		HealthCheckers: healthCheckers,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	resolver.Drain()

	log.Info().Msg("Server exited")
}
