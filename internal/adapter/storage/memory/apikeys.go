package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// APIKeyRepo implements ports.APIKeyRepository.
type APIKeyRepo struct {
	s *Store
}

// NewAPIKeyRepo creates a memory-backed APIKeyRepo.
func NewAPIKeyRepo(s *Store) *APIKeyRepo {
	return &APIKeyRepo{s: s}
}

// Create buffers a key insert. Hashes are unique.
func (r *APIKeyRepo) Create(ctx context.Context, tx pgx.Tx, k *domain.APIKey) error {
	mt, err := r.s.txFrom(tx)
	if err != nil {
		return err
	}
	if err := mt.lock(ctx, "api_keys:hash:"+k.KeyHash); err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}

	r.s.mu.RLock()
	_, idTaken := r.s.keys[k.ID]
	_, hashTaken := r.s.keysByHash[k.KeyHash]
	r.s.mu.RUnlock()
	if idTaken || hashTaken {
		return fmt.Errorf("insert api key: %w", ports.ErrDuplicate)
	}

	key := *k
	mt.onCommit(func(s *Store) {
		s.keys[key.ID] = key
		s.keysByHash[key.KeyHash] = key.ID
	})
	return nil
}

// GetByID returns the committed key or nil.
func (r *APIKeyRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.APIKey, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	k, ok := r.s.keys[id]
	if !ok {
		return nil, nil
	}
	return &k, nil
}

// GetByHash returns the committed key with the given digest or nil.
func (r *APIKeyRepo) GetByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	r.s.mu.RLock()
	id, ok := r.s.keysByHash[keyHash]
	r.s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// ListByOwner returns every committed key of an owner, newest first.
func (r *APIKeyRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.APIKey, error) {
	r.s.mu.RLock()
	keys := []domain.APIKey{}
	for _, k := range r.s.keys {
		if k.OwnerID == ownerID {
			keys = append(keys, k)
		}
	}
	r.s.mu.RUnlock()

	slices.SortFunc(keys, func(a, b domain.APIKey) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return keys, nil
}

// LockOwner takes the owner's row lock until tx ends.
func (r *APIKeyRepo) LockOwner(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) error {
	mt, err := r.s.txFrom(tx)
	if err != nil {
		return err
	}
	if err := mt.lock(ctx, "users:"+ownerID.String()); err != nil {
		return fmt.Errorf("lock owner: %w", err)
	}

	r.s.mu.RLock()
	_, ok := r.s.users[ownerID]
	r.s.mu.RUnlock()
	if !ok && !mt.users[ownerID] {
		return fmt.Errorf("owner not found: %s", ownerID)
	}
	return nil
}

// CountEffective counts the owner's committed keys that are active and
// unexpired at now. Callers hold the owner lock, so no other writer can add
// keys for this owner concurrently.
func (r *APIKeyRepo) CountEffective(_ context.Context, tx pgx.Tx, ownerID uuid.UUID, now time.Time) (int, error) {
	if _, err := r.s.txFrom(tx); err != nil {
		return 0, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	count := 0
	for _, k := range r.s.keys {
		if k.OwnerID == ownerID && k.IsEffective(now) {
			count++
		}
	}
	return count, nil
}

// Deactivate marks a key inactive.
func (r *APIKeyRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k, ok := r.s.keys[id]
	if !ok {
		return fmt.Errorf("api key not found: %s", id)
	}
	k.IsActive = false
	r.s.keys[id] = k
	return nil
}

// TouchLastUsed records a last-used stamp unless a newer one is present.
func (r *APIKeyRepo) TouchLastUsed(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k, ok := r.s.keys[id]
	if !ok {
		return nil
	}
	if k.LastUsedAt == nil || k.LastUsedAt.Before(at) {
		stamp := at
		k.LastUsedAt = &stamp
		r.s.keys[id] = k
	}
	return nil
}
