package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable, client-visible category of a failure.
type Kind string

const (
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindInvalid         Kind = "INVALID"
	KindConflict        Kind = "CONFLICT"
	KindUnavailable     Kind = "UNAVAILABLE"
	KindInternal        Kind = "INTERNAL"
)

var kindStatus = map[Kind]int{
	KindUnauthenticated: http.StatusUnauthorized,
	KindForbidden:       http.StatusForbidden,
	KindNotFound:        http.StatusNotFound,
	KindInvalid:         http.StatusBadRequest,
	KindConflict:        http.StatusConflict,
	KindUnavailable:     http.StatusServiceUnavailable,
	KindInternal:        http.StatusInternalServerError,
}

// HTTPStatus returns the status code a kind is reported with.
func (k Kind) HTTPStatus() int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Kind       Kind   `json:"kind"`
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError of the given kind.
func New(kind Kind, code string, message string) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: kind.HTTPStatus(),
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(kind Kind, code string, message string, err error) *AppError {
	e := New(kind, code, message)
	e.Err = err
	return e
}

// KindOf reports the kind of err, or KindInternal when err is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// CodeOf returns the stable code of err, or "SYS_001" when err is not an AppError.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "SYS_001"
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// ---- Authentication (AUTH) ----

func ErrAuthenticationRequired() *AppError {
	return New(KindUnauthenticated, "AUTH_001", "Valid authentication required")
}

func ErrInvalidToken() *AppError {
	return New(KindUnauthenticated, "AUTH_002", "Invalid or expired token")
}

func ErrUserInactive() *AppError {
	return New(KindUnauthenticated, "AUTH_003", "User not found or inactive")
}

func ErrInvalidSignature() *AppError {
	return New(KindUnauthenticated, "AUTH_004", "Invalid signature")
}

func ErrSessionRequired() *AppError {
	return New(KindForbidden, "AUTH_005", "This operation requires a user session")
}

func ErrInvalidOAuthState() *AppError {
	return New(KindUnauthenticated, "AUTH_006", "Invalid or missing sign-in state")
}

func ErrEmailInUse() *AppError {
	return New(KindConflict, "AUTH_007", "Email is already linked to another account")
}

// ---- Service credentials (KEY) ----

func ErrInvalidAPIKey() *AppError {
	return New(KindUnauthenticated, "KEY_001", "Invalid API key")
}

func ErrAPIKeyExpired() *AppError {
	return New(KindUnauthenticated, "KEY_002", "API key has expired")
}

func ErrAPIKeyInactive() *AppError {
	return New(KindUnauthenticated, "KEY_003", "API key is inactive")
}

func ErrPermissionDenied(permission string) *AppError {
	return New(KindForbidden, "KEY_004", fmt.Sprintf("API key lacks '%s' permission", permission))
}

func ErrKeyLimitReached(limit int) *AppError {
	return New(KindConflict, "KEY_005", fmt.Sprintf("Maximum of %d active API keys allowed", limit))
}

func ErrKeyNotExpired() *AppError {
	return New(KindConflict, "KEY_006", "API key is not expired")
}

func ErrNotOwner(entity string) *AppError {
	return New(KindForbidden, "KEY_007", fmt.Sprintf("%s belongs to another user", entity))
}

// ---- Wallet & ledger (WAL) ----

func ErrInsufficientFunds() *AppError {
	return New(KindConflict, "WAL_001", "Insufficient balance")
}

func ErrSelfTransfer() *AppError {
	return New(KindConflict, "WAL_002", "Cannot transfer to own wallet")
}

func ErrNotFound(entity string) *AppError {
	return New(KindNotFound, "WAL_003", fmt.Sprintf("%s not found", entity))
}

func ErrInvalidAmount(message string) *AppError {
	return New(KindInvalid, "WAL_004", message)
}

// ---- Payment collaborator (PAY) ----

func ErrPaymentUnavailable(err error) *AppError {
	return Wrap(KindUnavailable, "PAY_001", "Payment provider unavailable", err)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an unexpected failure as SYS_001.
func InternalError(err error) *AppError {
	return Wrap(KindInternal, "SYS_001", "Internal server error", err)
}

// Validation returns a SYS_002 malformed-input error.
func Validation(message string) *AppError {
	return New(KindInvalid, "SYS_002", message)
}
