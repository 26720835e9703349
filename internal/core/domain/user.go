package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account created on first sign-in with the identity provider.
type User struct {
	ID              uuid.UUID `json:"id"`
	ProviderSubject string    `json:"-"`
	Email           string    `json:"email"`
	Name            *string   `json:"name,omitempty"`
	PictureURL      *string   `json:"picture_url,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ExternalIdentity is the verified identity returned by the identity provider.
type ExternalIdentity struct {
	Subject    string
	Email      string
	Name       string
	PictureURL string
}
