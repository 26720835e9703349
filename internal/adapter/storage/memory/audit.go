package memory

import (
	"context"

	"wallet-service/internal/core/domain"

	"github.com/google/uuid"
)

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	s *Store
}

// NewAuditRepo creates a memory-backed AuditRepo.
func NewAuditRepo(s *Store) *AuditRepo {
	return &AuditRepo{s: s}
}

// Create appends an audit entry.
func (r *AuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.audit = append(r.s.audit, *entry)
	return nil
}

// ByOwner returns the entries recorded for ownerID in insertion order.
func (r *AuditRepo) ByOwner(ownerID uuid.UUID) []domain.AuditLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.AuditLog
	for _, e := range r.s.audit {
		if e.OwnerID != nil && *e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out
}
