package service

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// HMACSignatureService implements ports.SignatureService using HMAC-SHA512,
// the scheme the payment processor signs webhook bodies with.
type HMACSignatureService struct {
	secret []byte
}

// NewHMACSignatureService creates a signature service keyed with secret.
func NewHMACSignatureService(secret string) *HMACSignatureService {
	return &HMACSignatureService{secret: []byte(secret)}
}

// Sign computes HMAC-SHA512 of payload.
// Returns lowercase hex-encoded signature.
func (s *HMACSignatureService) Sign(payload []byte) string {
	mac := hmac.New(sha512.New, s.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against HMAC-SHA512(payload) in constant time.
// An empty secret never verifies.
func (s *HMACSignatureService) Verify(payload []byte, signature string) bool {
	if len(s.secret) == 0 || signature == "" {
		return false
	}
	expected := s.Sign(payload)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
