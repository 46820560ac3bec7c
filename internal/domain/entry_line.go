package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntryLine is one reconciliation: a dated snapshot of every bucket's
// balance together with the bank balances it was reconciled against.
type LedgerEntryLine struct {
	date         time.Time
	bankBalances []BankBalance
	adjustments  []LedgerTransaction
	entries      []*LedgerEntry
	remarks      string
	state        EntryState
}

// NewLedgerEntryLine creates a draft line. The date is the exclusive upper
// bound of the period it covers.
func NewLedgerEntryLine(date time.Time, bankBalances []BankBalance) *LedgerEntryLine {
	return &LedgerEntryLine{
		date:         date,
		bankBalances: slices.Clone(bankBalances),
		state:        Draft,
	}
}

// RestoreLedgerEntryLine rebuilds a locked line from storage.
func RestoreLedgerEntryLine(date time.Time, bankBalances []BankBalance, adjustments []LedgerTransaction, entries []*LedgerEntry, remarks string) *LedgerEntryLine {
	l := &LedgerEntryLine{
		date:         date,
		bankBalances: slices.Clone(bankBalances),
		adjustments:  slices.Clone(adjustments),
		entries:      slices.Clone(entries),
		remarks:      remarks,
	}
	l.Lock()
	return l
}

func (l *LedgerEntryLine) Date() time.Time   { return l.date }
func (l *LedgerEntryLine) Remarks() string   { return l.remarks }
func (l *LedgerEntryLine) State() EntryState { return l.state }
func (l *LedgerEntryLine) IsNew() bool       { return l.state == Draft }

func (l *LedgerEntryLine) BankBalances() []BankBalance {
	return slices.Clone(l.bankBalances)
}

func (l *LedgerEntryLine) BalanceAdjustments() []LedgerTransaction {
	return slices.Clone(l.adjustments)
}

// Entries returns the line's entries. The entries themselves enforce locking.
func (l *LedgerEntryLine) Entries() []*LedgerEntry {
	return slices.Clone(l.entries)
}

// Entry finds the entry for a category code.
func (l *LedgerEntryLine) Entry(code string) (*LedgerEntry, bool) {
	for _, e := range l.entries {
		if e.bucket.Category.Code == code {
			return e, true
		}
	}
	return nil, false
}

// EntryFor finds the entry tracking bucket.
func (l *LedgerEntryLine) EntryFor(bucket LedgerBucket) (*LedgerEntry, bool) {
	for _, e := range l.entries {
		if e.bucket.Equal(bucket) {
			return e, true
		}
	}
	return nil, false
}

// SetEntries replaces the entries of a draft line.
func (l *LedgerEntryLine) SetEntries(entries []*LedgerEntry) error {
	if l.state == Locked {
		return ErrLocked
	}
	l.entries = slices.Clone(entries)
	return nil
}

// SetRemarks updates the free-text remarks of a draft line.
func (l *LedgerEntryLine) SetRemarks(remarks string) error {
	if l.state == Locked {
		return ErrLocked
	}
	l.remarks = remarks
	return nil
}

// TotalBankBalance sums the bank balances.
func (l *LedgerEntryLine) TotalBankBalance() decimal.Decimal {
	total := decimal.Zero
	for _, b := range l.bankBalances {
		total = total.Add(b.Balance)
	}
	return total
}

// TotalBalanceAdjustments sums the balance adjustments.
func (l *LedgerEntryLine) TotalBalanceAdjustments() decimal.Decimal {
	return SumAmounts(l.adjustments)
}

// LedgerBalance is the adjusted bank balance.
func (l *LedgerEntryLine) LedgerBalance() decimal.Decimal {
	return l.TotalBankBalance().Add(l.TotalBalanceAdjustments())
}

// CalculatedSurplus is the part of the ledger balance not held by any bucket.
func (l *LedgerEntryLine) CalculatedSurplus() decimal.Decimal {
	surplus := l.LedgerBalance()
	for _, e := range l.entries {
		surplus = surplus.Sub(e.balance)
	}
	return surplus
}

// SurplusBalances returns the surplus held in each account, in bank balance
// order followed by any account only referenced by entries or adjustments.
func (l *LedgerEntryLine) SurplusBalances() []BankBalance {
	var accounts []Account
	index := make(map[string]int)
	add := func(a Account) {
		if _, ok := index[a.Name]; !ok {
			index[a.Name] = len(accounts)
			accounts = append(accounts, a)
		}
	}
	for _, b := range l.bankBalances {
		add(b.Account)
	}
	for _, a := range l.adjustments {
		if a.Account != nil {
			add(*a.Account)
		}
	}
	for _, e := range l.entries {
		add(e.bucket.StoredIn)
	}

	totals := make([]decimal.Decimal, len(accounts))
	for _, b := range l.bankBalances {
		i := index[b.Account.Name]
		totals[i] = totals[i].Add(b.Balance)
	}
	for _, a := range l.adjustments {
		if a.Account != nil {
			i := index[a.Account.Name]
			totals[i] = totals[i].Add(a.Amount)
		}
	}
	for _, e := range l.entries {
		i := index[e.bucket.StoredIn.Name]
		totals[i] = totals[i].Sub(e.balance)
	}

	out := make([]BankBalance, len(accounts))
	for i, a := range accounts {
		out[i] = BankBalance{Account: a, Balance: totals[i]}
	}
	return out
}

// BalanceAdjustment posts a correction against an account's bank balance.
func (l *LedgerEntryLine) BalanceAdjustment(amount decimal.Decimal, narrative string, account Account) (LedgerTransaction, error) {
	if l.state == Locked {
		return LedgerTransaction{}, ErrLocked
	}
	if account.Name == "" {
		return LedgerTransaction{}, fmt.Errorf("%w: balance adjustment requires an account", ErrMissingArgument)
	}
	adj := NewBalanceAdjustment(amount, narrative, account)
	l.adjustments = append(l.adjustments, adj)
	return adj, nil
}

// CancelBalanceAdjustment removes a balance adjustment from a draft line.
func (l *LedgerEntryLine) CancelBalanceAdjustment(id string) error {
	if l.state == Locked {
		return ErrLocked
	}
	idx := slices.IndexFunc(l.adjustments, func(t LedgerTransaction) bool { return t.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: balance adjustment %s", ErrEntryNotFound, id)
	}
	l.adjustments = slices.Delete(l.adjustments, idx, idx+1)
	return nil
}

// Validate checks the line has entries and every entry balances.
func (l *LedgerEntryLine) Validate() error {
	var errs []error
	if len(l.entries) == 0 {
		errs = append(errs, fmt.Errorf("reconciliation %s has no ledger entries", l.date.Format(time.DateOnly)))
	}
	for _, e := range l.entries {
		if err := e.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("reconciliation %s: %w", l.date.Format(time.DateOnly), err))
		}
	}
	return errors.Join(errs...)
}

// Lock makes the line and all its entries immutable.
func (l *LedgerEntryLine) Lock() {
	l.state = Locked
	for _, e := range l.entries {
		e.lock()
	}
}

func (l *LedgerEntryLine) unlock() {
	l.state = Draft
	for _, e := range l.entries {
		e.unlock()
	}
}
