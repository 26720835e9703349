package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const apiKeyColumns = `id, owner_id, name, prefix, key_hash, permissions, is_active, expires_at, last_used_at, created_at`

// APIKeyRepo implements ports.APIKeyRepository.
type APIKeyRepo struct {
	pool Pool
}

// NewAPIKeyRepo creates a new APIKeyRepo.
func NewAPIKeyRepo(pool Pool) *APIKeyRepo {
	return &APIKeyRepo{pool: pool}
}

// Create inserts a new key within a database transaction.
func (r *APIKeyRepo) Create(ctx context.Context, tx pgx.Tx, k *domain.APIKey) error {
	query := `INSERT INTO api_keys (` + apiKeyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		k.ID, k.OwnerID, k.Name, k.Prefix, k.KeyHash, k.Permissions.Strings(),
		k.IsActive, k.ExpiresAt, k.LastUsedAt, k.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert api key: %w", ports.ErrDuplicate)
		}
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetByID fetches a key by UUID.
func (r *APIKeyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`
	return scanAPIKey(r.pool.QueryRow(ctx, query, id))
}

// GetByHash fetches a key by the digest of its secret.
func (r *APIKeyRepo) GetByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_hash = $1`
	return scanAPIKey(r.pool.QueryRow(ctx, query, keyHash))
}

// ListByOwner fetches every key of an owner, newest first.
func (r *APIKeyRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	keys := []domain.APIKey{}
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api key rows: %w", err)
	}
	return keys, nil
}

// LockOwner takes the owner's user row lock, serialising key creation for
// that owner until tx ends. This MUST be called within a transaction.
func (r *APIKeyRepo) LockOwner(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, ownerID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("owner not found: %s", ownerID)
		}
		return fmt.Errorf("lock owner: %w", err)
	}
	return nil
}

// CountEffective counts the owner's active, unexpired keys as of now.
func (r *APIKeyRepo) CountEffective(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, now time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM api_keys WHERE owner_id = $1 AND is_active AND expires_at > $2`

	var count int
	if err := tx.QueryRow(ctx, query, ownerID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("count effective api keys: %w", err)
	}
	return count, nil
}

// Deactivate marks a key inactive. Deactivating an inactive key is not an error.
func (r *APIKeyRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE api_keys SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("api key not found: %s", id)
	}
	return nil
}

// TouchLastUsed records the time a key last authenticated. Older stamps never
// overwrite newer ones.
func (r *APIKeyRepo) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE api_keys SET last_used_at = $1
		WHERE id = $2 AND (last_used_at IS NULL OR last_used_at < $1)`

	if _, err := r.pool.Exec(ctx, query, at, id); err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

func scanAPIKey(row pgx.Row) (*domain.APIKey, error) {
	k := &domain.APIKey{}
	var perms []string
	err := row.Scan(
		&k.ID, &k.OwnerID, &k.Name, &k.Prefix, &k.KeyHash, &perms,
		&k.IsActive, &k.ExpiresAt, &k.LastUsedAt, &k.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan api key: %w", err)
	}

	k.Permissions, err = domain.ParsePermissions(perms)
	if err != nil {
		return nil, fmt.Errorf("decode api key %s permissions: %w", k.ID, err)
	}
	return k, nil
}
