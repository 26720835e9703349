package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletNumberLength is the number of decimal digits in a wallet number.
const WalletNumberLength = 13

// Wallet is the single balance-holding account of a user.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Number    string          `json:"wallet_number"`
	Balance   decimal.Decimal `json:"balance"` // NUMERIC(15,2), never negative
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CanDebit reports whether the wallet holds at least amount.
func (w *Wallet) CanDebit(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}

var walletNumberMax = new(big.Int).Exp(big.NewInt(10), big.NewInt(WalletNumberLength), nil)

// GenerateWalletNumber returns a random zero-padded 13-digit number.
// Uniqueness is checked by the caller against storage.
func GenerateWalletNumber() (string, error) {
	n, err := rand.Int(rand.Reader, walletNumberMax)
	if err != nil {
		return "", fmt.Errorf("generate wallet number: %w", err)
	}
	return fmt.Sprintf("%0*d", WalletNumberLength, n), nil
}

// IsValidWalletNumber reports whether s is exactly 13 decimal digits.
func IsValidWalletNumber(s string) bool {
	if len(s) != WalletNumberLength {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
