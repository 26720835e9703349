package dto

import (
	"time"

	"wallet-service/internal/core/domain"

	"github.com/shopspring/decimal"
)

// CreateKeyRequest is the request body for issuing a service credential.
type CreateKeyRequest struct {
	Name        string   `json:"name" binding:"required,max=100"`
	Permissions []string `json:"permissions" binding:"required,min=1,dive,permission"`
	Expiry      string   `json:"expiry" binding:"required,key_duration"`
}

// RolloverRequest is the request body for minting a key from an expired one.
type RolloverRequest struct {
	ExpiredKeyID string `json:"expired_key_id" binding:"required,uuid"`
	Expiry       string `json:"expiry" binding:"required,key_duration"`
}

// DepositRequest is the request body for starting a deposit.
// Amount accepts either a JSON number or a decimal string.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// TransferRequest is the request body for a wallet-to-wallet transfer.
type TransferRequest struct {
	WalletNumber string          `json:"wallet_number" binding:"required,wallet_number"`
	Amount       decimal.Decimal `json:"amount"`
}

// IssuedKeyResponse carries the plaintext secret. It is only ever returned once.
type IssuedKeyResponse struct {
	APIKey    string    `json:"api_key"`
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// KeyResponse describes a stored credential without its secret.
type KeyResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Prefix      string     `json:"prefix"`
	Permissions []string   `json:"permissions"`
	IsActive    bool       `json:"is_active"`
	IsExpired   bool       `json:"is_expired"`
	ExpiresAt   time.Time  `json:"expires_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SignInResponse is returned by the identity provider callback.
type SignInResponse struct {
	Token        string    `json:"token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	WalletNumber string    `json:"wallet_number"`
	NewUser      bool      `json:"new_user"`
}

// DepositResponse points the client at the hosted checkout.
type DepositResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
}

// DepositStatusResponse is a read-only view of a deposit.
type DepositStatusResponse struct {
	Reference string                   `json:"reference"`
	Status    domain.TransactionStatus `json:"status"`
	Amount    decimal.Decimal          `json:"amount"`
	Currency  string                   `json:"currency"`
	PaidAt    *time.Time               `json:"paid_at,omitempty"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	WalletNumber string          `json:"wallet_number"`
	Balance      decimal.Decimal `json:"balance"`
	Currency     string          `json:"currency"`
}

// TransferResponse summarises a completed transfer.
type TransferResponse struct {
	Status          string          `json:"status"`
	Reference       string          `json:"reference"`
	Amount          decimal.Decimal `json:"amount"`
	RecipientNumber string          `json:"recipient_wallet_number"`
	Balance         decimal.Decimal `json:"balance"`
}

// TransactionResponse is one entry of the transaction history.
type TransactionResponse struct {
	ID                string                   `json:"id"`
	Reference         string                   `json:"reference"`
	Kind              domain.TransactionKind   `json:"kind"`
	Direction         string                   `json:"direction"`
	Status            domain.TransactionStatus `json:"status"`
	Amount            decimal.Decimal          `json:"amount"`
	CounterpartNumber *string                  `json:"counterpart_wallet_number,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
}

// TransactionListResponse wraps a paginated transaction list.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// Transaction directions relative to the wallet being listed.
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// ToKeyResponse converts a stored key for display at now.
func ToKeyResponse(k *domain.APIKey, now time.Time) KeyResponse {
	return KeyResponse{
		ID:          k.ID.String(),
		Name:        k.Name,
		Prefix:      k.Prefix,
		Permissions: k.Permissions.Strings(),
		IsActive:    k.IsActive,
		IsExpired:   k.IsExpired(now),
		ExpiresAt:   k.ExpiresAt,
		LastUsedAt:  k.LastUsedAt,
		CreatedAt:   k.CreatedAt,
	}
}

// ToTransactionResponse converts a ledger entry. Deposits and the incoming
// leg of a transfer are credits.
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	direction := DirectionDebit
	if t.IsDeposit() || t.IsIncomingLeg() {
		direction = DirectionCredit
	}
	return TransactionResponse{
		ID:                t.ID.String(),
		Reference:         t.Reference,
		Kind:              t.Kind,
		Direction:         direction,
		Status:            t.Status,
		Amount:            t.Amount,
		CounterpartNumber: t.CounterpartNumber,
		CreatedAt:         t.CreatedAt,
	}
}
