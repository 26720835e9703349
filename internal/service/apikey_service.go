package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"
	"wallet-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	secretRandomBytes = 24
	displayPrefixLen  = len(domain.APIKeyPrefix) + 8
	maxKeyNameLen     = 100
)

// APIKeyServiceImpl implements ports.APIKeyService.
type APIKeyServiceImpl struct {
	keyRepo    ports.APIKeyRepository
	transactor ports.DBTransactor
	hasher     ports.SecretHasher
	log        zerolog.Logger
	now        func() time.Time
}

// NewAPIKeyService creates a new APIKeyServiceImpl.
func NewAPIKeyService(
	keyRepo ports.APIKeyRepository,
	transactor ports.DBTransactor,
	hasher ports.SecretHasher,
	log zerolog.Logger,
) *APIKeyServiceImpl {
	return &APIKeyServiceImpl{
		keyRepo:    keyRepo,
		transactor: transactor,
		hasher:     hasher,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create mints a new credential. The returned secret is never retrievable again.
func (s *APIKeyServiceImpl) Create(ctx context.Context, req ports.CreateKeyRequest) (*domain.IssuedAPIKey, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if len(name) > maxKeyNameLen {
		return nil, apperror.Validation(fmt.Sprintf("name must be at most %d characters", maxKeyNameLen))
	}

	perms, err := domain.ParsePermissions(req.Permissions)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	now := s.now()
	expiresAt, err := domain.ExpiryFrom(now, req.Expiry)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	return s.issue(ctx, req.OwnerID, name, perms, expiresAt, now)
}

// Rollover mints a successor for an expired credential with the same
// permissions. The old row is left untouched.
func (s *APIKeyServiceImpl) Rollover(ctx context.Context, ownerID, oldKeyID uuid.UUID, expiry string) (*domain.IssuedAPIKey, error) {
	old, err := s.ownedKey(ctx, ownerID, oldKeyID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !old.IsExpired(now) {
		return nil, apperror.ErrKeyNotExpired()
	}

	expiresAt, err := domain.ExpiryFrom(now, expiry)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	issued, err := s.issue(ctx, ownerID, rolloverName(old.Name), old.Permissions, expiresAt, now)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("old_key_id", old.ID.String()).
		Str("new_key_id", issued.Key.ID.String()).
		Msg("api key rolled over successfully")

	return issued, nil
}

// Revoke deactivates a credential. Revoking an inactive key is a no-op.
func (s *APIKeyServiceImpl) Revoke(ctx context.Context, ownerID, keyID uuid.UUID) error {
	key, err := s.ownedKey(ctx, ownerID, keyID)
	if err != nil {
		return err
	}
	if !key.IsActive {
		return nil
	}

	if err := s.keyRepo.Deactivate(ctx, key.ID); err != nil {
		return apperror.InternalError(fmt.Errorf("deactivate api key: %w", err))
	}

	s.log.Info().Str("key_id", key.ID.String()).Msg("api key revoked successfully")
	return nil
}

// List returns every credential of the owner, newest first, without secrets.
func (s *APIKeyServiceImpl) List(ctx context.Context, ownerID uuid.UUID) ([]domain.APIKey, error) {
	keys, err := s.keyRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list api keys: %w", err))
	}
	return keys, nil
}

func (s *APIKeyServiceImpl) ownedKey(ctx context.Context, ownerID, keyID uuid.UUID) (*domain.APIKey, error) {
	key, err := s.keyRepo.GetByID(ctx, keyID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get api key: %w", err))
	}
	if key == nil {
		return nil, apperror.ErrNotFound("API key")
	}
	if key.OwnerID != ownerID {
		return nil, apperror.ErrNotOwner("API key")
	}
	return key, nil
}

// rolloverName derives the name of a replacement key. Suffixes from earlier
// rollovers are dropped and the base is cut so the result fits maxKeyNameLen.
func rolloverName(name string) string {
	base := name
	for strings.HasSuffix(base, domain.RolloverSuffix) {
		base = strings.TrimSuffix(base, domain.RolloverSuffix)
	}
	base = strings.TrimSpace(base)

	limit := maxKeyNameLen - len(domain.RolloverSuffix)
	for len(base) > limit {
		r := []rune(base)
		base = string(r[:len(r)-1])
	}
	return base + domain.RolloverSuffix
}

// issue persists a new key while holding the owner lock so the effective-key
// bound holds under concurrent creation.
func (s *APIKeyServiceImpl) issue(
	ctx context.Context,
	ownerID uuid.UUID,
	name string,
	perms domain.PermissionSet,
	expiresAt, now time.Time,
) (*domain.IssuedAPIKey, error) {
	secret, err := generateSecret()
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	key := &domain.APIKey{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        name,
		Prefix:      secret[:displayPrefixLen],
		KeyHash:     s.hasher.Digest(secret),
		Permissions: perms,
		IsActive:    true,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.keyRepo.LockOwner(ctx, dbTx, ownerID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock owner: %w", err))
	}

	count, err := s.keyRepo.CountEffective(ctx, dbTx, ownerID, now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count api keys: %w", err))
	}
	if count >= domain.MaxActiveKeys {
		return nil, apperror.ErrKeyLimitReached(domain.MaxActiveKeys)
	}

	if err := s.keyRepo.Create(ctx, dbTx, key); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create api key: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("key_id", key.ID.String()).
		Str("owner_id", ownerID.String()).
		Strs("permissions", perms.Strings()).
		Time("expires_at", expiresAt).
		Msg("api key created successfully")

	return &domain.IssuedAPIKey{Key: *key, Secret: secret}, nil
}

func generateSecret() (string, error) {
	b := make([]byte, secretRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key secret: %w", err)
	}
	return domain.APIKeyPrefix + hex.EncodeToString(b), nil
}
