package ports

import (
	"context"
	"errors"
	"time"

	"wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicate is wrapped by repositories when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate key")
	// ErrBalanceConstraint is returned when a balance change would drive a wallet negative.
	ErrBalanceConstraint = errors.New("balance would become negative")
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, tx pgx.Tx, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByProviderSubject(ctx context.Context, subject string) (*domain.User, error)
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	GetByNumber(ctx context.Context, number string) (*domain.Wallet, error)
	// LockForUpdate row-locks the given wallets in ascending id order.
	LockForUpdate(ctx context.Context, tx pgx.Tx, ids ...uuid.UUID) ([]domain.Wallet, error)
	// AdjustBalance adds delta (which may be negative) to the wallet balance.
	AdjustBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta decimal.Decimal) error
}

// TransactionRepository defines persistence operations for ledger transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	// CreateTransferPair writes both legs of a transfer in one statement.
	CreateTransferPair(ctx context.Context, tx pgx.Tx, out, in *domain.Transaction) error
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	GetByExternalReference(ctx context.Context, externalReference string) (*domain.Transaction, error)
	// TransitionStatus moves a transaction from one status to another only if it
	// still holds from. It reports whether this call changed the row.
	TransitionStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.TransactionStatus, settled *Settlement) (bool, error)
	ListByWallet(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// Settlement carries the processor-confirmed fields of a deposit.
type Settlement struct {
	Amount decimal.Decimal
	At     time.Time
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	WalletID uuid.UUID
	Page     int
	PageSize int
}

// APIKeyRepository defines persistence operations for scoped service credentials.
type APIKeyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, key *domain.APIKey) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.APIKey, error)
	GetByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.APIKey, error)
	// LockOwner serialises credential creation for one owner until tx ends.
	LockOwner(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) error
	CountEffective(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, now time.Time) (int, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}

// AuditRepository persists audit trail entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
