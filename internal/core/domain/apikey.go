package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// MaxActiveKeys bounds the effective credentials an owner may hold when
	// creating a new one.
	MaxActiveKeys = 5
	// APIKeyPrefix starts every plaintext secret.
	APIKeyPrefix = "sk_"
	// RolloverSuffix is appended to the name of a rolled-over key.
	RolloverSuffix = " (rolled over)"
)

// APIKey is a scoped service credential. Effective validity is computed from
// IsActive and ExpiresAt and never stored.
type APIKey struct {
	ID          uuid.UUID     `json:"id"`
	OwnerID     uuid.UUID     `json:"owner_id"`
	Name        string        `json:"name"`
	Prefix      string        `json:"prefix"`
	KeyHash     string        `json:"-"`
	Permissions PermissionSet `json:"-"`
	IsActive    bool          `json:"is_active"`
	ExpiresAt   time.Time     `json:"expires_at"`
	LastUsedAt  *time.Time    `json:"last_used_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// IsExpired reports whether now is at or past the expiry.
func (k *APIKey) IsExpired(now time.Time) bool {
	return !now.Before(k.ExpiresAt)
}

// IsEffective reports whether the key currently authenticates.
func (k *APIKey) IsEffective(now time.Time) bool {
	return k.IsActive && !k.IsExpired(now)
}

// IssuedAPIKey is returned once at creation and is the only place the
// plaintext secret appears.
type IssuedAPIKey struct {
	Key    APIKey
	Secret string
}
