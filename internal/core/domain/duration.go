package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var keyDurationPattern = regexp.MustCompile(`^([0-9]+)([HDMYhdmy])$`)

var keyDurationUnits = map[string]time.Duration{
	"H": time.Hour,
	"D": 24 * time.Hour,
	"M": 30 * 24 * time.Hour,
	"Y": 365 * 24 * time.Hour,
}

// ParseKeyDuration parses an expiry such as "1H", "30D", "6M" or "1Y".
// Months are 30 days and years 365 days.
func ParseKeyDuration(s string) (time.Duration, error) {
	m := keyDurationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("%w: %q, expected a number followed by H, D, M or Y", ErrInvalidKeyDuration, s)
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q must be a positive amount", ErrInvalidKeyDuration, s)
	}

	unit := keyDurationUnits[strings.ToUpper(m[2])]
	if n > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("%w: %q is too long", ErrInvalidKeyDuration, s)
	}
	return time.Duration(n) * unit, nil
}

// ExpiryFrom resolves expiry into an absolute expiry relative to now.
func ExpiryFrom(now time.Time, expiry string) (time.Time, error) {
	d, err := ParseKeyDuration(expiry)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(d), nil
}
