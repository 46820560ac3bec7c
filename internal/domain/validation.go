package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidBookName   = errors.New("invalid ledger book name")
	ErrInvalidStorageKey = errors.New("invalid storage key")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrAmountTooLarge    = errors.New("amount exceeds maximum allowed")
	ErrAmountTooSmall    = errors.New("amount below minimum allowed")
	ErrAmountPrecision   = errors.New("amount has more than two decimal places")
	ErrSameBucket        = errors.New("cannot transfer to the same ledger bucket")
	ErrMissingNarrative  = errors.New("narrative is required")
)

// Validation constants
const (
	MaxBookNameLength = 255
	MaxTransferAmount = "1000000000" // 1 billion
	MinTransferAmount = "0.01"
)

var storageKeyRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateBookName validates a ledger book name.
func ValidateBookName(name string) error {
	name = strings.TrimSpace(name)

	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidBookName)
	}

	if len(name) > MaxBookNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidBookName, MaxBookNameLength)
	}

	return nil
}

// ValidateStorageKey validates the key a ledger book is persisted under.
func ValidateStorageKey(key string) error {
	if !storageKeyRegex.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidStorageKey, key)
	}
	return nil
}

// ValidateAmount validates a transfer amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	minAmount := decimal.RequireFromString(MinTransferAmount)
	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrAmountTooSmall, MinTransferAmount)
	}

	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: %s", ErrAmountPrecision, amount)
	}

	maxAmount := decimal.RequireFromString(MaxTransferAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxTransferAmount)
	}

	return nil
}
