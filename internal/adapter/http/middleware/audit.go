package middleware

import (
	"net/http"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys handlers use to enrich the audit entry of their request.
const (
	CtxAuditOwner    = "audit_owner"
	CtxAuditResource = "audit_resource"
	CtxAuditDetails  = "audit_details"
)

type auditRoute struct {
	action       domain.AuditAction
	resourceType string
}

// auditRoutes maps method + route template to the audited action.
var auditRoutes = map[string]auditRoute{
	http.MethodGet + " /api/v1/auth/google/callback": {domain.AuditActionSignIn, "user"},
	http.MethodPost + " /api/v1/keys/create":         {domain.AuditActionKeyCreate, "api_key"},
	http.MethodPost + " /api/v1/keys/rollover":       {domain.AuditActionKeyRollover, "api_key"},
	http.MethodDelete + " /api/v1/keys/:id":          {domain.AuditActionKeyRevoke, "api_key"},
	http.MethodPost + " /api/v1/wallet/deposit":      {domain.AuditActionDeposit, "transaction"},
	http.MethodPost + " /api/v1/wallet/transfer":     {domain.AuditActionTransfer, "transaction"},
}

// AuditLog records successful audited operations after the handler ran.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}

		route, ok := auditRoutes[c.Request.Method+" "+c.FullPath()]
		if !ok {
			return
		}

		entry := ports.AuditEntry{
			Action:       route.action,
			ResourceType: route.resourceType,
			ResourceID:   c.GetString(CtxAuditResource),
			IPAddress:    c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
		}

		if p, ok := Principal(c); ok {
			owner := p.OwnerID
			entry.OwnerID = &owner
			entry.Details = map[string]any{"principal": p.Kind.String()}
			if p.Kind == domain.PrincipalService {
				entry.Details["api_key_id"] = p.KeyID.String()
			}
		} else if v, ok := c.Get(CtxAuditOwner); ok {
			if owner, ok := v.(uuid.UUID); ok {
				entry.OwnerID = &owner
			}
		}

		if v, ok := c.Get(CtxAuditDetails); ok {
			if extra, ok := v.(map[string]any); ok {
				if entry.Details == nil {
					entry.Details = make(map[string]any, len(extra))
				}
				for k, val := range extra {
					entry.Details[k] = val
				}
			}
		}

		auditSvc.Log(c.Request.Context(), entry)
	}
}
