package domain

import "github.com/google/uuid"

// PrincipalKind discriminates the two credential kinds a request can carry.
type PrincipalKind uint8

const (
	// PrincipalUser is authenticated by a session token and holds every permission.
	PrincipalUser PrincipalKind = iota + 1
	// PrincipalService is authenticated by a scoped API key.
	PrincipalService
)

func (k PrincipalKind) String() string {
	switch k {
	case PrincipalUser:
		return "user"
	case PrincipalService:
		return "service"
	default:
		return "unknown"
	}
}

// Principal is the authenticated actor behind a request.
type Principal struct {
	Kind    PrincipalKind
	OwnerID uuid.UUID
	// KeyID and Granted are only set for PrincipalService.
	KeyID   uuid.UUID
	Granted PermissionSet
}

// NewUserPrincipal returns a full-user principal.
func NewUserPrincipal(ownerID uuid.UUID) Principal {
	return Principal{Kind: PrincipalUser, OwnerID: ownerID}
}

// NewServicePrincipal returns a principal scoped to the key's permissions.
func NewServicePrincipal(key *APIKey) Principal {
	return Principal{
		Kind:    PrincipalService,
		OwnerID: key.OwnerID,
		KeyID:   key.ID,
		Granted: key.Permissions,
	}
}

// IsUser reports whether the principal was authenticated by a session token.
func (p Principal) IsUser() bool {
	return p.Kind == PrincipalUser
}

// Can reports whether the principal holds perm.
func (p Principal) Can(perm Permission) bool {
	switch p.Kind {
	case PrincipalUser:
		return true
	case PrincipalService:
		return p.Granted.Has(perm)
	default:
		return false
	}
}
