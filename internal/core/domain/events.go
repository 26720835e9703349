package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Subjects for ledger events published after commit.
const (
	SubjectDepositCredited   = "wallet.deposit.credited"
	SubjectTransferCompleted = "wallet.transfer.completed"
)

// DepositCredited is emitted once per deposit reference when a wallet is credited.
type DepositCredited struct {
	Reference  string          `json:"reference"`
	WalletID   uuid.UUID       `json:"wallet_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	CreditedAt time.Time       `json:"credited_at"`
}

// TransferCompleted is emitted after both legs of a transfer commit.
type TransferCompleted struct {
	Reference       string          `json:"reference"`
	SenderWalletID  uuid.UUID       `json:"sender_wallet_id"`
	RecipientWallet uuid.UUID       `json:"recipient_wallet_id"`
	Amount          decimal.Decimal `json:"amount"`
	CompletedAt     time.Time       `json:"completed_at"`
}
