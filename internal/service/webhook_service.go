package service

import (
	"context"
	"encoding/json"
	"strings"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"
	"wallet-service/pkg/apperror"

	"github.com/rs/zerolog"
)

// Processor event kinds.
const (
	EventChargeSuccess = "charge.success"
	chargeStatusOK     = "success"
)

// WebhookEvent is the envelope of a processor notification.
type WebhookEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ChargeData is the payload of a charge.success event.
type ChargeData struct {
	Reference string `json:"reference"`
	Amount    *int64 `json:"amount"` // minor units
	Status    string `json:"status"`
	Currency  string `json:"currency"`
}

// webhookService implements ports.WebhookService.
type webhookService struct {
	ledger ports.LedgerService
	sigSvc ports.SignatureService
	log    zerolog.Logger
}

// NewWebhookService creates a new webhook ingestion service.
func NewWebhookService(ledger ports.LedgerService, sigSvc ports.SignatureService, log zerolog.Logger) ports.WebhookService {
	return &webhookService{
		ledger: ledger,
		sigSvc: sigSvc,
		log:    log,
	}
}

// Handle verifies the signature over rawBody before looking at its content,
// then feeds charge.success events into the ledger. Other events are ignored.
func (s *webhookService) Handle(ctx context.Context, rawBody []byte, signature string) error {
	if !s.sigSvc.Verify(rawBody, signature) {
		return apperror.ErrInvalidSignature()
	}

	var event WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return apperror.Validation("invalid webhook payload")
	}

	if event.Event != EventChargeSuccess {
		s.log.Debug().Str("event", event.Event).Msg("webhook event ignored")
		return nil
	}

	var data ChargeData
	if len(event.Data) == 0 || json.Unmarshal(event.Data, &data) != nil {
		return apperror.Validation("invalid webhook payload")
	}
	if data.Reference == "" || data.Amount == nil {
		return apperror.Validation("webhook payload is missing reference or amount")
	}
	if data.Currency != "" && !strings.EqualFold(data.Currency, domain.DepositCurrency) {
		s.log.Warn().
			Str("reference", data.Reference).
			Str("currency", data.Currency).
			Msg("webhook currency differs from ledger currency")
	}

	return s.ledger.CreditOnConfirmation(ctx, ports.Confirmation{
		ExternalReference: data.Reference,
		Amount:            domain.FromMinorUnits(*data.Amount),
		Success:           strings.EqualFold(data.Status, chargeStatusOK),
	})
}
