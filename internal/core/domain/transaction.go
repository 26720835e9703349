package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind represents the kind of money movement.
type TransactionKind string

const (
	TransactionKindDeposit  TransactionKind = "DEPOSIT"
	TransactionKindTransfer TransactionKind = "TRANSFER"
)

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

const (
	DepositReferencePrefix  = "DEP_"
	TransferReferencePrefix = "TRF_"
	// TransferInSuffix marks the recipient leg of a transfer.
	TransferInSuffix = "_IN"
	// DepositCurrency is the only currency the ledger settles in.
	DepositCurrency = "NGN"
)

// Transaction is a ledger entry. Once created only Status and the settlement
// fields change.
type Transaction struct {
	ID                uuid.UUID         `json:"id"`
	Reference         string            `json:"reference"`
	Kind              TransactionKind   `json:"kind"`
	Status            TransactionStatus `json:"status"`
	Amount            decimal.Decimal   `json:"amount"`
	WalletID          uuid.UUID         `json:"wallet_id"`
	CounterpartNumber *string           `json:"counterpart_number,omitempty"`
	ExternalReference *string           `json:"external_reference,omitempty"`
	RelatedReference  *string           `json:"related_reference,omitempty"`
	SettledAmount     *decimal.Decimal  `json:"settled_amount,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	SettledAt         *time.Time        `json:"settled_at,omitempty"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusSuccess || t.Status == TransactionStatusFailed
}

// IsDeposit reports whether t is a deposit.
func (t *Transaction) IsDeposit() bool {
	return t.Kind == TransactionKindDeposit
}

// IsIncomingLeg reports whether t is the recipient side of a transfer.
func (t *Transaction) IsIncomingLeg() bool {
	return t.Kind == TransactionKindTransfer && strings.HasSuffix(t.Reference, TransferInSuffix)
}

// NewDepositReference returns "DEP_" followed by 16 upper-case hex characters.
func NewDepositReference() (string, error) {
	return newReference(DepositReferencePrefix)
}

// NewTransferReference returns "TRF_" followed by 16 upper-case hex characters.
func NewTransferReference() (string, error) {
	return newReference(TransferReferencePrefix)
}

func newReference(prefix string) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reference: %w", err)
	}
	return prefix + strings.ToUpper(hex.EncodeToString(b)), nil
}

// MaxAmount is the largest value a NUMERIC(15,2) amount or balance column holds.
var MaxAmount = decimal.RequireFromString("9999999999999.99")

// ValidateAmount checks that amount is positive, at most MaxAmount and has at
// most two decimal places.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if amount.GreaterThan(MaxAmount) {
		return ErrAmountTooLarge
	}
	if !amount.Equal(amount.Truncate(2)) {
		return ErrAmountPrecision
	}
	return nil
}

// ToMinorUnits converts a two-decimal amount to the processor's minor unit.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}

// FromMinorUnits converts a processor minor-unit amount to the ledger unit.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
