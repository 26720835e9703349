package domain

import "errors"

var (
	ErrNonPositiveAmount  = errors.New("amount must be greater than zero")
	ErrAmountPrecision    = errors.New("amount must have at most two decimal places")
	ErrAmountTooLarge     = errors.New("amount must be at most 9999999999999.99")
	ErrEmptyPermissions   = errors.New("at least one permission is required")
	ErrUnknownPermission  = errors.New("unknown permission")
	ErrInvalidKeyDuration = errors.New("invalid expiry duration")
)
