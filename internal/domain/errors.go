package domain

import (
	"errors"
	"fmt"
)

var (
	// Argument errors
	ErrMissingArgument = errors.New("required argument is missing")

	// Sequencing and precondition errors
	ErrInvalidState = errors.New("invalid operation for current state")
	ErrLocked       = fmt.Errorf("%w: ledger entry line is locked", ErrInvalidState)

	// Configuration errors
	ErrNotSupported = errors.New("not supported")

	// Integrity errors
	ErrCorruptedLedgerBook = errors.New("ledger book is corrupted")

	// Validation errors
	ErrValidationWarning = errors.New("validation warning")
	ErrInvalidLedgerBook = errors.New("ledger book is invalid")

	// Repository errors
	ErrBookNotFound  = errors.New("ledger book not found")
	ErrBookExists    = errors.New("ledger book already exists")
	ErrEntryNotFound = errors.New("ledger entry not found")
)

// WarningSource identifies the check that raised a ValidationWarning.
type WarningSource string

const (
	WarningDateSpacing       WarningSource = "date-spacing"
	WarningUncategorised     WarningSource = "uncategorised"
	WarningOrphanedAutoMatch WarningSource = "orphaned-auto-match"
)

// ValidationWarning is a recoverable problem the caller may choose to ignore.
type ValidationWarning struct {
	Source  WarningSource
	Message string
}

func (w *ValidationWarning) Error() string {
	return fmt.Sprintf("validation warning (%s): %s", w.Source, w.Message)
}

func (w *ValidationWarning) Unwrap() error {
	return ErrValidationWarning
}

// CorruptedLedgerBookError reports a surplus drift detected by the consistency check.
type CorruptedLedgerBookError struct {
	Before string
	After  string
}

func (e *CorruptedLedgerBookError) Error() string {
	return fmt.Sprintf("historical surplus changed during reconciliation: before=%s after=%s", e.Before, e.After)
}

func (e *CorruptedLedgerBookError) Unwrap() error {
	return ErrCorruptedLedgerBook
}
