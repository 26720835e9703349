package service

import (
	"context"
	"encoding/json"
	"time"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService creates a new audit service.
// If repo is nil, audit logs are only written to the logger.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Log records an audit entry asynchronously (fire-and-forget).
func (s *auditService) Log(ctx context.Context, entry ports.AuditEntry) {
	record := &domain.AuditLog{
		ID:           uuid.New(),
		OwnerID:      entry.OwnerID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		CreatedAt:    time.Now().UTC(),
	}
	if len(entry.Details) > 0 {
		if b, err := json.Marshal(entry.Details); err == nil {
			record.Details = string(b)
		}
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		s.log.Info().
			Str("action", string(record.Action)).
			Str("resource_type", record.ResourceType).
			Str("resource_id", record.ResourceID).
			Str("ip", record.IPAddress).
			Msg("audit")

		if s.repo != nil {
			if err := s.repo.Create(ctx, record); err != nil {
				s.log.Warn().Err(err).Str("action", string(record.Action)).Msg("failed to persist audit log")
			}
		}
	}()
}
