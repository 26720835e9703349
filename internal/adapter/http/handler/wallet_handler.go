package handler

import (
	"io"
	"math"
	"net/http"
	"strconv"

	"wallet-service/internal/adapter/http/dto"
	"wallet-service/internal/adapter/http/middleware"
	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"
	"wallet-service/pkg/apperror"
	"wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HeaderPaystackSignature carries the HMAC-SHA512 of the webhook body.
const HeaderPaystackSignature = "x-paystack-signature"

// WalletHandler handles wallet-related endpoints.
type WalletHandler struct {
	ledger     ports.LedgerService
	webhookSvc ports.WebhookService
	log        zerolog.Logger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledger ports.LedgerService, webhookSvc ports.WebhookService, log zerolog.Logger) *WalletHandler {
	return &WalletHandler{
		ledger:     ledger,
		webhookSvc: webhookSvc,
		log:        log,
	}
}

// callerWallet resolves the wallet of the authenticated principal, writing
// the error response itself when that fails.
func (h *WalletHandler) callerWallet(c *gin.Context) (*domain.Wallet, bool) {
	p, ok := principal(c)
	if !ok {
		return nil, false
	}
	wallet, err := h.ledger.GetWalletByOwner(c.Request.Context(), p.OwnerID)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return wallet, true
}

// Deposit handles POST /api/v1/wallet/deposit.
func (h *WalletHandler) Deposit(c *gin.Context) {
	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	wallet, ok := h.callerWallet(c)
	if !ok {
		return
	}

	started, err := h.ledger.InitializeDeposit(c.Request.Context(), wallet.ID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResource, started.Reference)
	c.Set(middleware.CtxAuditDetails, map[string]any{"amount": req.Amount.StringFixed(2)})
	response.Created(c, dto.DepositResponse{
		Reference:        started.Reference,
		AuthorizationURL: started.AuthorizationURL,
	})
}

// DepositStatus handles GET /api/v1/wallet/deposit/:reference/status.
func (h *WalletHandler) DepositStatus(c *gin.Context) {
	wallet, ok := h.callerWallet(c)
	if !ok {
		return
	}

	status, err := h.ledger.GetDepositStatus(c.Request.Context(), wallet.ID, c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.DepositStatusResponse{
		Reference: status.Reference,
		Status:    status.Status,
		Amount:    status.Amount,
		Currency:  status.Currency,
		PaidAt:    status.PaidAt,
	})
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	wallet, ok := h.callerWallet(c)
	if !ok {
		return
	}

	response.OK(c, dto.BalanceResponse{
		WalletNumber: wallet.Number,
		Balance:      wallet.Balance,
		Currency:     domain.DepositCurrency,
	})
}

// Transfer handles POST /api/v1/wallet/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	wallet, ok := h.callerWallet(c)
	if !ok {
		return
	}

	result, err := h.ledger.Transfer(c.Request.Context(), wallet.ID, req.WalletNumber, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResource, result.Reference)
	c.Set(middleware.CtxAuditDetails, map[string]any{
		"amount":    result.Amount.StringFixed(2),
		"recipient": result.RecipientNumber,
	})
	response.OK(c, dto.TransferResponse{
		Status:          "success",
		Reference:       result.Reference,
		Amount:          result.Amount,
		RecipientNumber: result.RecipientNumber,
		Balance:         result.SenderBalance,
	})
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	wallet, ok := h.callerWallet(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	txns, total, err := h.ledger.ListTransactions(c.Request.Context(), ports.TransactionListParams{
		WalletID: wallet.ID,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, dto.ToTransactionResponse(&txns[i]))
	}

	response.OK(c, dto.TransactionListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	})
}

// PaystackWebhook handles POST /api/v1/wallet/paystack/webhook. The raw body
// is verified before it is parsed.
func (h *WalletHandler) PaystackWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("unreadable request body"))
		return
	}

	if err := h.webhookSvc.Handle(c.Request.Context(), body, c.GetHeader(HeaderPaystackSignature)); err != nil {
		if apperror.IsKind(err, apperror.KindInternal) {
			h.log.Error().Err(err).Str("request_id", c.GetString(response.RequestIDKey)).Msg("webhook processing failed")
		}
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": true})
}
