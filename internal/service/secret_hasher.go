package service

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// BlakeSecretHasher derives a keyed BLAKE2b-256 digest of API key secrets.
// The digest is deterministic so a presented secret can be found by exact lookup.
type BlakeSecretHasher struct {
	pepper []byte
}

// NewBlakeSecretHasher creates a hasher keyed with pepper (at most 64 bytes).
func NewBlakeSecretHasher(pepper string) (*BlakeSecretHasher, error) {
	if len(pepper) > blake2b.Size {
		return nil, fmt.Errorf("api key pepper must be at most %d bytes", blake2b.Size)
	}
	// validate the key once so Digest cannot fail
	if _, err := blake2b.New256([]byte(pepper)); err != nil {
		return nil, fmt.Errorf("init blake2b: %w", err)
	}
	return &BlakeSecretHasher{pepper: []byte(pepper)}, nil
}

// Digest returns the hex-encoded digest of secret.
func (h *BlakeSecretHasher) Digest(secret string) string {
	mac, _ := blake2b.New256(h.pepper)
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}
