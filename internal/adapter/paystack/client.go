// Package paystack implements ports.PaymentGateway against the Paystack API.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wallet-service/config"
	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

const initializePath = "/transaction/initialize"

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// HTTPClient is the subset of *http.Client the gateway uses.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the Paystack REST API.
type Client struct {
	baseURL     string
	secretKey   string
	callbackURL string
	timeout     time.Duration
	maxRetries  uint64
	backoff     time.Duration
	http        HTTPClient
	log         zerolog.Logger
}

// NewClient creates a Paystack client. httpClient may be nil.
func NewClient(cfg config.PaystackConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:   cfg.SecretKey,
		callbackURL: cfg.CallbackURL,
		timeout:     cfg.Timeout,
		maxRetries:  cfg.MaxRetries,
		backoff:     backoff,
		http:        httpClient,
		log:         log,
	}
}

type initializeRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"` // kobo
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// InitializeTransaction asks Paystack for a hosted checkout. Transport errors
// and 5xx/429 responses are retried with exponential backoff; any failure is
// returned wrapping ports.ErrGatewayUnavailable.
func (c *Client) InitializeTransaction(ctx context.Context, req ports.CheckoutRequest) (*ports.Checkout, error) {
	body, err := json.Marshal(initializeRequest{
		Email:       req.Email,
		Amount:      domain.ToMinorUnits(req.Amount),
		Reference:   req.Reference,
		CallbackURL: c.callbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("encode initialize request: %w", err)
	}

	var out initializeResponse
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))
	attempt := 0

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := c.post(ctx, initializePath, body, &out)
		if err != nil {
			c.log.Warn().Err(err).
				Int("attempt", attempt).
				Str("reference", req.Reference).
				Msg("paystack initialize attempt failed")
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrGatewayUnavailable, err)
	}

	if !out.Status || out.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: initialize rejected: %s", ports.ErrGatewayUnavailable, out.Message)
	}

	return &ports.Checkout{
		AuthorizationURL: out.Data.AuthorizationURL,
		AccessCode:       out.Data.AccessCode,
		Reference:        out.Data.Reference,
	}, nil
}

// post sends one request. Errors worth another attempt are marked retryable.
func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return retry.RetryableError(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return retry.RetryableError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return retry.RetryableError(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
