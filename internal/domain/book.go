package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerBook is the append-only history of reconciliations plus the
// current bucket to account mapping.
type LedgerBook struct {
	Name       string
	StorageKey string
	Modified   time.Time

	ledgers         []LedgerBucket
	reconciliations []*LedgerEntryLine
}

// NewLedgerBook creates an empty book.
func NewLedgerBook(name, storageKey string) *LedgerBook {
	return &LedgerBook{Name: name, StorageKey: storageKey}
}

// RestoreLedgerBook rebuilds a book from storage. Lines are expected most
// recent first and are kept in the stored order so Validate can report a
// history that is out of order.
func RestoreLedgerBook(name, storageKey string, modified time.Time, ledgers []LedgerBucket, lines []*LedgerEntryLine) *LedgerBook {
	b := &LedgerBook{
		Name:            name,
		StorageKey:      storageKey,
		Modified:        modified,
		ledgers:         slices.Clone(ledgers),
		reconciliations: slices.Clone(lines),
	}
	b.sortLedgers()
	return b
}

// Ledgers returns the tracked buckets ordered by category code.
func (b *LedgerBook) Ledgers() []LedgerBucket {
	return slices.Clone(b.ledgers)
}

// Reconciliations returns the history, most recent first.
func (b *LedgerBook) Reconciliations() []*LedgerEntryLine {
	return slices.Clone(b.reconciliations)
}

// MostRecent returns the latest reconciliation, if any.
func (b *LedgerBook) MostRecent() (*LedgerEntryLine, bool) {
	if len(b.reconciliations) == 0 {
		return nil, false
	}
	return b.reconciliations[0], true
}

// Ledger finds the tracked bucket for a category code.
func (b *LedgerBook) Ledger(code string) (LedgerBucket, bool) {
	for _, l := range b.ledgers {
		if l.Category.Code == code {
			return l, true
		}
	}
	return LedgerBucket{}, false
}

// AddBucket starts tracking a bucket. It returns false when the category is
// already tracked in any account; MoveBucket re-homes a tracked category.
// Only future reconciliations are affected.
func (b *LedgerBook) AddBucket(bucket LedgerBucket) (LedgerBucket, bool) {
	if _, tracked := b.Ledger(bucket.Category.Code); tracked {
		return LedgerBucket{}, false
	}
	b.ledgers = append(b.ledgers, bucket)
	b.sortLedgers()
	return bucket, true
}

// MoveBucket re-homes a tracked category's funds to another account. The
// previous balance carries forward at the next reconciliation.
func (b *LedgerBook) MoveBucket(code string, account Account) (LedgerBucket, error) {
	if account.Name == "" {
		return LedgerBucket{}, fmt.Errorf("%w: account", ErrMissingArgument)
	}
	for i, l := range b.ledgers {
		if l.Category.Code != code {
			continue
		}
		moved := l
		moved.StoredIn = account
		b.ledgers[i] = moved
		return moved, nil
	}
	return LedgerBucket{}, fmt.Errorf("%w: no bucket for category %s", ErrEntryNotFound, code)
}

// Append inserts a new reconciliation at the front of history, applies its
// auto-match consumptions to the previous line and locks it. Date ordering is
// validated by the caller before building the result.
func (b *LedgerBook) Append(result *ReconciliationResult) error {
	if result == nil || result.Reconciliation == nil {
		return fmt.Errorf("%w: reconciliation result", ErrMissingArgument)
	}
	for _, m := range result.AutoMatches {
		b.applyAutoMatch(m)
	}
	b.reconciliations = slices.Insert(b.reconciliations, 0, result.Reconciliation)
	result.Reconciliation.Lock()
	b.Modified = time.Now().UTC()
	return nil
}

func (b *LedgerBook) applyAutoMatch(m AutoMatchConsumption) {
	for _, line := range b.reconciliations {
		if !line.date.Equal(m.LineDate) {
			continue
		}
		if e, ok := line.Entry(m.CategoryCode); ok {
			e.consumeAutoMatch(m.LedgerTransactionID, m.StatementTransactionID)
		}
		return
	}
}

// UnlockMostRecent makes the latest reconciliation editable again.
func (b *LedgerBook) UnlockMostRecent() (*LedgerEntryLine, bool) {
	line, ok := b.MostRecent()
	if !ok {
		return nil, false
	}
	line.unlock()
	return line, true
}

// Validate checks the book is fit for persistence and reconciliation.
func (b *LedgerBook) Validate() error {
	var errs []error
	if strings.TrimSpace(b.StorageKey) == "" {
		errs = append(errs, errors.New("ledger book has no storage key"))
	}
	for i := 1; i < len(b.ledgers); i++ {
		if b.ledgers[i].Category.Code == b.ledgers[i-1].Category.Code {
			errs = append(errs, fmt.Errorf("category %s is tracked in both %s and %s",
				b.ledgers[i].Category.Code, b.ledgers[i-1].StoredIn.Name, b.ledgers[i].StoredIn.Name))
		}
	}
	for i := 0; i+1 < len(b.reconciliations); i++ {
		newer, older := b.reconciliations[i], b.reconciliations[i+1]
		if !newer.date.After(older.date) {
			errs = append(errs, fmt.Errorf("reconciliation dates out of order: %s is not after %s",
				newer.date.Format(time.DateOnly), older.date.Format(time.DateOnly)))
		}
	}
	for i, line := range b.reconciliations {
		if err := line.Validate(); err != nil {
			errs = append(errs, err)
		}
		if i+1 < len(b.reconciliations) {
			errs = append(errs, checkContinuity(line, b.reconciliations[i+1])...)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLedgerBook, err)
	}
	return nil
}

// checkContinuity verifies each entry opens at the previous period's balance.
func checkContinuity(line, previous *LedgerEntryLine) []error {
	var errs []error
	for _, e := range line.entries {
		expected := decimal.Zero
		if prev, ok := previous.Entry(e.bucket.Category.Code); ok {
			expected = prev.balance
		}
		if !e.opening.Equal(expected) {
			errs = append(errs, fmt.Errorf("reconciliation %s: entry %s opens at %s but previous balance was %s",
				line.date.Format(time.DateOnly), e.bucket, e.opening, expected))
		}
	}
	return errs
}

// LedgersAvailableForTransfer lists the tracked buckets plus one surplus
// bucket per distinct account.
func (b *LedgerBook) LedgersAvailableForTransfer() []LedgerBucket {
	out := slices.Clone(b.ledgers)
	seen := make(map[string]bool)
	for _, l := range b.ledgers {
		if seen[l.StoredIn.Name] {
			continue
		}
		seen[l.StoredIn.Name] = true
		out = append(out, SurplusBucket(l.StoredIn))
	}
	return out
}

func (b *LedgerBook) sortLedgers() {
	slices.SortStableFunc(b.ledgers, func(x, y LedgerBucket) int {
		if c := strings.Compare(x.Category.Code, y.Category.Code); c != 0 {
			return c
		}
		return strings.Compare(x.StoredIn.Name, y.StoredIn.Name)
	})
}
