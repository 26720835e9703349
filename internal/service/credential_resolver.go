package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"
	"wallet-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultStampWindow  = time.Minute
	stampTimeout        = 2 * time.Second
	lastUsedThrottleKey = "apikey:last_used:"
)

// CredentialResolver implements ports.CredentialResolver. A presented API key
// is evaluated first and wins outright when valid; the bearer token is only
// consulted when the key is absent or rejected.
type CredentialResolver struct {
	keyRepo  ports.APIKeyRepository
	userRepo ports.UserRepository
	tokens   ports.TokenService
	hasher   ports.SecretHasher
	throttle ports.UsageThrottle
	window   time.Duration
	log      zerolog.Logger
	now      func() time.Time

	stamps sync.WaitGroup
}

// NewCredentialResolver creates a CredentialResolver. throttle may be nil, in
// which case every successful key use is stamped.
func NewCredentialResolver(
	keyRepo ports.APIKeyRepository,
	userRepo ports.UserRepository,
	tokens ports.TokenService,
	hasher ports.SecretHasher,
	throttle ports.UsageThrottle,
	window time.Duration,
	log zerolog.Logger,
) *CredentialResolver {
	if window <= 0 {
		window = defaultStampWindow
	}
	return &CredentialResolver{
		keyRepo:  keyRepo,
		userRepo: userRepo,
		tokens:   tokens,
		hasher:   hasher,
		throttle: throttle,
		window:   window,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Resolve produces exactly one principal from the request credentials.
func (r *CredentialResolver) Resolve(ctx context.Context, creds ports.Credentials) (*domain.Principal, error) {
	var keyErr error
	if creds.APIKey != "" {
		p, err := r.resolveAPIKey(ctx, creds.APIKey)
		if err == nil {
			return p, nil
		}
		if !apperror.IsKind(err, apperror.KindUnauthenticated) {
			return nil, err
		}
		keyErr = err
	}

	if creds.BearerToken != "" {
		p, err := r.resolveBearer(ctx, creds.BearerToken)
		if err == nil {
			return p, nil
		}
		if !apperror.IsKind(err, apperror.KindUnauthenticated) || keyErr == nil {
			return nil, err
		}
		return nil, apperror.ErrAuthenticationRequired()
	}

	if keyErr != nil {
		return nil, keyErr
	}
	return nil, apperror.ErrAuthenticationRequired()
}

func (r *CredentialResolver) resolveAPIKey(ctx context.Context, secret string) (*domain.Principal, error) {
	key, err := r.keyRepo.GetByHash(ctx, r.hasher.Digest(secret))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup api key: %w", err))
	}
	if key == nil {
		return nil, apperror.ErrInvalidAPIKey()
	}

	now := r.now()
	if key.IsExpired(now) {
		return nil, apperror.ErrAPIKeyExpired()
	}
	if !key.IsActive {
		return nil, apperror.ErrAPIKeyInactive()
	}

	r.stampLastUsed(ctx, key.ID, now)

	p := domain.NewServicePrincipal(key)
	return &p, nil
}

func (r *CredentialResolver) resolveBearer(ctx context.Context, token string) (*domain.Principal, error) {
	claims, err := r.tokens.Validate(token)
	if err != nil {
		r.log.Debug().Err(err).Msg("bearer token rejected")
		return nil, apperror.ErrInvalidToken()
	}

	user, err := r.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup user: %w", err))
	}
	if user == nil || !user.IsActive {
		return nil, apperror.ErrUserInactive()
	}

	p := domain.NewUserPrincipal(user.ID)
	return &p, nil
}

// stampLastUsed records key usage in the background. Failures are logged and
// never affect the authentication outcome.
func (r *CredentialResolver) stampLastUsed(ctx context.Context, keyID uuid.UUID, at time.Time) {
	r.stamps.Add(1)
	go func() {
		defer r.stamps.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stampTimeout)
		defer cancel()

		if r.throttle != nil {
			ok, err := r.throttle.Allow(ctx, lastUsedThrottleKey+keyID.String(), r.window)
			if err != nil {
				r.log.Debug().Err(err).Str("key_id", keyID.String()).Msg("last-used throttle unavailable")
			} else if !ok {
				return
			}
		}

		if err := r.keyRepo.TouchLastUsed(ctx, keyID, at); err != nil {
			r.log.Warn().Err(err).Str("key_id", keyID.String()).Msg("failed to stamp api key usage")
		}
	}()
}

// Drain waits for in-flight usage stamps to finish.
func (r *CredentialResolver) Drain() {
	r.stamps.Wait()
}
