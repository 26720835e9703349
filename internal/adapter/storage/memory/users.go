package memory

import (
	"context"
	"fmt"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	s *Store
}

// NewUserRepo creates a memory-backed UserRepo.
func NewUserRepo(s *Store) *UserRepo {
	return &UserRepo{s: s}
}

// Create buffers a user insert. A concurrent insert of the same subject or
// email blocks until the other transaction ends.
func (r *UserRepo) Create(ctx context.Context, tx pgx.Tx, user *domain.User) error {
	mt, err := r.s.txFrom(tx)
	if err != nil {
		return err
	}
	if err := mt.lock(ctx, "users:subject:"+user.ProviderSubject); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if err := mt.lock(ctx, "users:email:"+user.Email); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	r.s.mu.RLock()
	_, idTaken := r.s.users[user.ID]
	_, subjectTaken := r.s.usersBySubject[user.ProviderSubject]
	emailTaken := false
	for _, u := range r.s.users {
		if u.Email == user.Email {
			emailTaken = true
			break
		}
	}
	r.s.mu.RUnlock()
	if idTaken || subjectTaken || emailTaken || mt.users[user.ID] {
		return fmt.Errorf("insert user: %w", ports.ErrDuplicate)
	}

	if mt.users == nil {
		mt.users = make(map[uuid.UUID]bool)
	}
	mt.users[user.ID] = true

	u := *user
	mt.onCommit(func(s *Store) {
		s.users[u.ID] = u
		s.usersBySubject[u.ProviderSubject] = u.ID
	})
	return nil
}

// GetByID returns the committed user or nil.
func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetByProviderSubject returns the committed user for an identity subject or nil.
func (r *UserRepo) GetByProviderSubject(_ context.Context, subject string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.usersBySubject[subject]
	if !ok {
		return nil, nil
	}
	u := r.s.users[id]
	return &u, nil
}
