package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransferFundsCommand moves funds between two ledger buckets on a line.
type TransferFundsCommand struct {
	From      LedgerBucket
	To        LedgerBucket
	Amount    decimal.Decimal
	Narrative string
	// AutoMatchingReference is issued when a bank transfer is required.
	AutoMatchingReference string
}

// BankTransferRequired reports whether the buckets live in different accounts.
func (c *TransferFundsCommand) BankTransferRequired() bool {
	return !c.From.StoredIn.SameAs(c.To.StoredIn)
}

// Validate validates the transfer request.
func (c *TransferFundsCommand) Validate() error {
	if strings.TrimSpace(c.Narrative) == "" {
		return ErrMissingNarrative
	}

	if c.From.Category.Code == "" || c.To.Category.Code == "" {
		return fmt.Errorf("%w: both ledger buckets are required", ErrMissingArgument)
	}

	if c.From.Equal(c.To) {
		return ErrSameBucket
	}

	if c.From.IsSurplus() && c.To.IsSurplus() && !c.BankTransferRequired() {
		return fmt.Errorf("%w: surplus to surplus within %s", ErrSameBucket, c.From.StoredIn)
	}

	return ValidateAmount(c.Amount)
}

// IsValid reports whether Validate passes.
func (c *TransferFundsCommand) IsValid() bool {
	return c.Validate() == nil
}

// TransferFunds posts a fund transfer onto a draft line. Surplus sides are
// adjusted only through balance adjustments; other sides get a ledger
// transaction in their entry.
func (l *LedgerEntryLine) TransferFunds(cmd *TransferFundsCommand) error {
	if cmd == nil {
		return fmt.Errorf("%w: transfer command", ErrMissingArgument)
	}
	if l.state == Locked {
		return ErrLocked
	}
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	fromEntry, err := l.transferEntry(cmd.From)
	if err != nil {
		return err
	}
	toEntry, err := l.transferEntry(cmd.To)
	if err != nil {
		return err
	}

	// One pending reference per bank transfer: on the receiving entry, or on
	// the paying entry when the receiver is a surplus bucket.
	var tagged *LedgerEntry
	if cmd.BankTransferRequired() {
		tagged = toEntry
		if tagged == nil {
			tagged = fromEntry
		}
		if _, err := l.BalanceAdjustment(cmd.Amount.Neg(), cmd.Narrative, cmd.From.StoredIn); err != nil {
			return err
		}
		if _, err := l.BalanceAdjustment(cmd.Amount, cmd.Narrative, cmd.To.StoredIn); err != nil {
			return err
		}
	}

	post := func(e *LedgerEntry, amount decimal.Decimal) error {
		if e == nil {
			return nil
		}
		tx := NewCreditDebit(amount, cmd.Narrative, l.date)
		if e == tagged {
			tx.AutoMatch = PendingRef(cmd.AutoMatchingReference)
		}
		return e.AddTransaction(tx)
	}
	if err := post(fromEntry, cmd.Amount.Neg()); err != nil {
		return err
	}
	return post(toEntry, cmd.Amount)
}

// transferEntry resolves one side of a transfer against the line's own
// entries. Surplus sides have no entry but their account must be on the line.
// A bucket must match the entry's account, which may differ from the book's
// current mapping after a move.
func (l *LedgerEntryLine) transferEntry(bucket LedgerBucket) (*LedgerEntry, error) {
	date := l.date.Format(time.DateOnly)
	if bucket.IsSurplus() {
		for _, sb := range l.SurplusBalances() {
			if sb.Account.SameAs(bucket.StoredIn) {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("%w: no funds in %s on %s", ErrEntryNotFound, bucket.StoredIn.Name, date)
	}
	if e, ok := l.EntryFor(bucket); ok {
		return e, nil
	}
	if e, ok := l.Entry(bucket.Category.Code); ok {
		return nil, fmt.Errorf("%w: %s is held in %s on %s", ErrEntryNotFound,
			bucket.Category.Code, e.bucket.StoredIn.Name, date)
	}
	return nil, fmt.Errorf("%w: %s on %s", ErrEntryNotFound, bucket, date)
}

// LedgersAvailableForTransfer lists the buckets of the line's entries plus one
// surplus bucket per account the line holds funds in. Transfers resolve their
// buckets against this view.
func (l *LedgerEntryLine) LedgersAvailableForTransfer() []LedgerBucket {
	out := make([]LedgerBucket, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.bucket)
	}
	for _, sb := range l.SurplusBalances() {
		out = append(out, SurplusBucket(sb.Account))
	}
	return out
}
