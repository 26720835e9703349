package ports

import (
	"context"
	"errors"
	"time"

	"wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrGatewayUnavailable is wrapped by payment gateway adapters once retries are exhausted.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// SignatureService handles HMAC signing and verification of webhook payloads.
type SignatureService interface {
	Sign(payload []byte) string
	Verify(payload []byte, signature string) bool
}

// SecretHasher derives the lookup digest stored for an API key secret.
type SecretHasher interface {
	Digest(secret string) string
}

// TokenService handles JWT session token operations.
type TokenService interface {
	Generate(userID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID    uuid.UUID
	ExpiresAt time.Time
}

// UsageThrottle limits how often best-effort usage stamps are written.
type UsageThrottle interface {
	// Allow reports whether a stamp for key may be written now; it returns
	// false while a previous stamp is still inside window.
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}

// EventPublisher publishes ledger events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// PaymentGateway is the external payment collaborator.
type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, req CheckoutRequest) (*Checkout, error)
}

// CheckoutRequest is what the gateway needs to start a hosted checkout.
type CheckoutRequest struct {
	Email     string
	Amount    decimal.Decimal
	Reference string
}

// Checkout is the gateway's answer to a checkout request.
type Checkout struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// IdentityProvider performs the external sign-in exchange.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*domain.ExternalIdentity, error)
}

// --- Service Ports (Business Logic) ---

// Credentials are the secrets found on an inbound request. Either may be empty.
type Credentials struct {
	APIKey      string
	BearerToken string
}

// CredentialResolver turns request credentials into a principal.
type CredentialResolver interface {
	Resolve(ctx context.Context, creds Credentials) (*domain.Principal, error)
}

// APIKeyService manages the lifecycle of scoped service credentials.
type APIKeyService interface {
	Create(ctx context.Context, req CreateKeyRequest) (*domain.IssuedAPIKey, error)
	Rollover(ctx context.Context, ownerID, oldKeyID uuid.UUID, expiry string) (*domain.IssuedAPIKey, error)
	Revoke(ctx context.Context, ownerID, keyID uuid.UUID) error
	List(ctx context.Context, ownerID uuid.UUID) ([]domain.APIKey, error)
}

// CreateKeyRequest holds validated input for credential creation.
type CreateKeyRequest struct {
	OwnerID     uuid.UUID
	Name        string
	Permissions []string
	Expiry      string
}

// LedgerService owns balance mutation, transfers and idempotent crediting.
type LedgerService interface {
	GetWalletByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	GetBalance(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error)
	InitializeDeposit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (*DepositInit, error)
	GetDepositStatus(ctx context.Context, walletID uuid.UUID, reference string) (*DepositStatus, error)
	CreditOnConfirmation(ctx context.Context, c Confirmation) error
	Transfer(ctx context.Context, senderWalletID uuid.UUID, recipientNumber string, amount decimal.Decimal) (*TransferResult, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// DepositInit is returned when a deposit is started.
type DepositInit struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

// DepositStatus is a read-only snapshot of a deposit.
type DepositStatus struct {
	Reference string
	Status    domain.TransactionStatus
	Amount    decimal.Decimal
	Currency  string
	PaidAt    *time.Time
}

// Confirmation is a processor-reported payment outcome.
type Confirmation struct {
	ExternalReference string
	Amount            decimal.Decimal
	Success           bool
}

// TransferResult summarises a completed transfer.
type TransferResult struct {
	Reference       string
	Amount          decimal.Decimal
	RecipientNumber string
	SenderBalance   decimal.Decimal
}

// WebhookService ingests payment processor notifications.
type WebhookService interface {
	Handle(ctx context.Context, rawBody []byte, signature string) error
}

// AuthService signs users in through the identity provider.
type AuthService interface {
	SignIn(ctx context.Context, identity domain.ExternalIdentity) (*SignInResult, error)
}

// SignInResult is returned after a successful sign-in.
type SignInResult struct {
	User      domain.User
	Wallet    domain.Wallet
	Token     string
	ExpiresAt time.Time
	Created   bool
}

// AuditService records audited actions without blocking the request path.
type AuditService interface {
	Log(ctx context.Context, entry AuditEntry)
}

// AuditEntry is the input to AuditService.Log.
type AuditEntry struct {
	OwnerID      *uuid.UUID
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	Details      map[string]any
	IPAddress    string
	UserAgent    string
}
