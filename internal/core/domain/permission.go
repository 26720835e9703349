package domain

import (
	"fmt"
	"strings"
)

// Permission is a single capability a service credential can be granted.
type Permission uint8

const (
	PermissionRead Permission = 1 << iota
	PermissionDeposit
	PermissionTransfer
)

// allPermissions is the closed vocabulary in canonical order.
var allPermissions = []Permission{PermissionRead, PermissionDeposit, PermissionTransfer}

func (p Permission) String() string {
	switch p {
	case PermissionRead:
		return "read"
	case PermissionDeposit:
		return "deposit"
	case PermissionTransfer:
		return "transfer"
	default:
		return fmt.Sprintf("permission(%d)", uint8(p))
	}
}

// ParsePermission maps a permission name to its bit.
func ParsePermission(s string) (Permission, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read":
		return PermissionRead, nil
	case "deposit":
		return PermissionDeposit, nil
	case "transfer":
		return PermissionTransfer, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPermission, s)
	}
}

// PermissionSet is a bit-set over the fixed permission vocabulary.
type PermissionSet uint8

// FullPermissions holds every permission.
const FullPermissions = PermissionSet(PermissionRead | PermissionDeposit | PermissionTransfer)

// NewPermissionSet builds a set from individual permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	var s PermissionSet
	for _, p := range perms {
		s |= PermissionSet(p)
	}
	return s
}

// ParsePermissions parses permission names into a non-empty set.
// Duplicates collapse; any unknown name fails the whole parse.
func ParsePermissions(names []string) (PermissionSet, error) {
	if len(names) == 0 {
		return 0, ErrEmptyPermissions
	}
	var s PermissionSet
	for _, name := range names {
		p, err := ParsePermission(name)
		if err != nil {
			return 0, err
		}
		s |= PermissionSet(p)
	}
	return s, nil
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	return s&PermissionSet(p) != 0
}

// IsEmpty reports whether the set grants nothing.
func (s PermissionSet) IsEmpty() bool {
	return s&FullPermissions == 0
}

// Strings returns the permission names in canonical order.
func (s PermissionSet) Strings() []string {
	out := make([]string, 0, len(allPermissions))
	for _, p := range allPermissions {
		if s.Has(p) {
			out = append(out, p.String())
		}
	}
	return out
}
