package handler

import (
	"time"

	"wallet-service/internal/adapter/http/dto"
	"wallet-service/internal/adapter/http/middleware"
	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"
	"wallet-service/pkg/apperror"
	"wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// KeyHandler manages scoped service credentials for the signed-in user.
type KeyHandler struct {
	keySvc ports.APIKeyService
	now    func() time.Time
}

// NewKeyHandler creates a new KeyHandler.
func NewKeyHandler(keySvc ports.APIKeyService) *KeyHandler {
	return &KeyHandler{keySvc: keySvc, now: time.Now}
}

// Create handles POST /api/v1/keys/create.
func (h *KeyHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req dto.CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	issued, err := h.keySvc.Create(c.Request.Context(), ports.CreateKeyRequest{
		OwnerID:     p.OwnerID,
		Name:        req.Name,
		Permissions: req.Permissions,
		Expiry:      req.Expiry,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResource, issued.Key.ID.String())
	c.Set(middleware.CtxAuditDetails, map[string]any{
		"name":        issued.Key.Name,
		"permissions": issued.Key.Permissions.Strings(),
	})
	response.Created(c, toIssuedKeyResponse(issued))
}

// Rollover handles POST /api/v1/keys/rollover.
func (h *KeyHandler) Rollover(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req dto.RolloverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	oldID, err := uuid.Parse(req.ExpiredKeyID)
	if err != nil {
		response.Error(c, apperror.Validation("expired_key_id must be a UUID"))
		return
	}

	issued, err := h.keySvc.Rollover(c.Request.Context(), p.OwnerID, oldID, req.Expiry)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResource, issued.Key.ID.String())
	c.Set(middleware.CtxAuditDetails, map[string]any{"expired_key_id": oldID.String()})
	response.Created(c, toIssuedKeyResponse(issued))
}

// List handles GET /api/v1/keys.
func (h *KeyHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	keys, err := h.keySvc.List(c.Request.Context(), p.OwnerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	now := h.now()
	items := make([]dto.KeyResponse, 0, len(keys))
	for i := range keys {
		items = append(items, dto.ToKeyResponse(&keys[i], now))
	}
	response.OK(c, items)
}

// Revoke handles DELETE /api/v1/keys/:id.
func (h *KeyHandler) Revoke(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("key id must be a UUID"))
		return
	}

	if err := h.keySvc.Revoke(c.Request.Context(), p.OwnerID, keyID); err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResource, keyID.String())
	response.OK(c, gin.H{"id": keyID.String(), "revoked": true})
}

func toIssuedKeyResponse(issued *domain.IssuedAPIKey) dto.IssuedKeyResponse {
	return dto.IssuedKeyResponse{
		APIKey:    issued.Secret,
		ID:        issued.Key.ID.String(),
		ExpiresAt: issued.Key.ExpiresAt,
	}
}

// principal returns the authenticated principal or writes AUTH_001.
func principal(c *gin.Context) (domain.Principal, bool) {
	p, ok := middleware.Principal(c)
	if !ok {
		response.Error(c, apperror.ErrAuthenticationRequired())
	}
	return p, ok
}
