package service

import (
	"wallet-service/internal/core/domain"
	"wallet-service/pkg/apperror"
)

// PermissionGuard checks a principal's grant against an operation's
// required capability.
type PermissionGuard struct{}

// NewPermissionGuard creates a PermissionGuard.
func NewPermissionGuard() *PermissionGuard {
	return &PermissionGuard{}
}

// Require fails Forbidden, naming the permission, unless p holds it.
// A full user always passes.
func (g *PermissionGuard) Require(p domain.Principal, perm domain.Permission) error {
	if p.Can(perm) {
		return nil
	}
	return apperror.ErrPermissionDenied(perm.String())
}

// RequireUser fails Forbidden unless p was authenticated with a session token.
func (g *PermissionGuard) RequireUser(p domain.Principal) error {
	if p.IsUser() {
		return nil
	}
	return apperror.ErrSessionRequired()
}
