package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// EntryState is the two-phase lifecycle of entries and lines.
type EntryState int

const (
	// Draft entries are being built by a reconciliation and may be edited.
	Draft EntryState = iota
	// Locked entries are history; amendments go into a later period.
	Locked
)

func (s EntryState) String() string {
	if s == Locked {
		return "locked"
	}
	return "draft"
}

// LedgerEntry is one bucket's transactions and closing balance for one
// reconciliation date.
type LedgerEntry struct {
	bucket       LedgerBucket
	opening      decimal.Decimal
	balance      decimal.Decimal
	transactions []LedgerTransaction
	state        EntryState
}

// NewLedgerEntry creates a draft entry carrying forward the opening balance.
func NewLedgerEntry(bucket LedgerBucket, opening decimal.Decimal) *LedgerEntry {
	return &LedgerEntry{
		bucket:  bucket,
		opening: opening,
		balance: opening,
		state:   Draft,
	}
}

// RestoreLedgerEntry rebuilds a locked entry from storage. The opening
// balance is derived from the stored balance and transactions.
func RestoreLedgerEntry(bucket LedgerBucket, balance decimal.Decimal, txs []LedgerTransaction) *LedgerEntry {
	return &LedgerEntry{
		bucket:       bucket,
		opening:      balance.Sub(SumAmounts(txs)),
		balance:      balance,
		transactions: slices.Clone(txs),
		state:        Locked,
	}
}

func (e *LedgerEntry) Bucket() LedgerBucket            { return e.bucket }
func (e *LedgerEntry) OpeningBalance() decimal.Decimal { return e.opening }
func (e *LedgerEntry) Balance() decimal.Decimal        { return e.balance }
func (e *LedgerEntry) State() EntryState               { return e.state }
func (e *LedgerEntry) IsLocked() bool                  { return e.state == Locked }

// Transactions returns a copy of the entry's transactions in date order.
func (e *LedgerEntry) Transactions() []LedgerTransaction {
	return slices.Clone(e.transactions)
}

// NetAmount is the sum of the entry's transactions.
func (e *LedgerEntry) NetAmount() decimal.Decimal {
	return SumAmounts(e.transactions)
}

// SetTransactionsForReconciliation replaces the entry's transactions, runs
// the bucket policy and recalculates the balance. It reports whether the
// policy appended a compensating transaction.
func (e *LedgerEntry) SetTransactionsForReconciliation(txs []LedgerTransaction, reconciliationDate time.Time) (bool, error) {
	if e.state == Locked {
		return false, ErrLocked
	}

	working := slices.Clone(txs)
	working, mutated := e.bucket.Policy().Apply(working, reconciliationDate, e.opening)
	slices.SortStableFunc(working, func(a, b LedgerTransaction) int {
		return a.dateOr(reconciliationDate).Compare(b.dateOr(reconciliationDate))
	})

	e.transactions = working
	e.balance = e.opening.Add(SumAmounts(working))
	return mutated, nil
}

// AddTransaction appends a transaction to a draft entry.
func (e *LedgerEntry) AddTransaction(tx LedgerTransaction) error {
	if e.state == Locked {
		return ErrLocked
	}
	if tx.Kind == TxBalanceAdjustment {
		return fmt.Errorf("%w: balance adjustments belong on the entry line", ErrInvalidState)
	}
	if tx.ID == "" {
		tx.ID = NewTransactionID()
	}
	e.transactions = append(e.transactions, tx)
	e.balance = e.balance.Add(tx.Amount)
	return nil
}

// RemoveTransaction deletes a transaction from a draft entry.
func (e *LedgerEntry) RemoveTransaction(id string) error {
	if e.state == Locked {
		return ErrLocked
	}
	idx := slices.IndexFunc(e.transactions, func(t LedgerTransaction) bool { return t.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: transaction %s", ErrEntryNotFound, id)
	}
	e.balance = e.balance.Sub(e.transactions[idx].Amount)
	e.transactions = slices.Delete(e.transactions, idx, idx+1)
	return nil
}

// PendingAutoMatches returns transactions whose reference is not yet consumed.
func (e *LedgerEntry) PendingAutoMatches() []LedgerTransaction {
	var out []LedgerTransaction
	for _, t := range e.transactions {
		if t.AutoMatch.IsPending() {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks the balance arithmetic.
func (e *LedgerEntry) Validate() error {
	expected := e.opening.Add(SumAmounts(e.transactions))
	if !expected.Equal(e.balance) {
		return fmt.Errorf("entry %s: balance %s does not equal opening %s plus transactions %s",
			e.bucket, e.balance, e.opening, SumAmounts(e.transactions))
	}
	return nil
}

// consumeAutoMatch records that a pending reference was matched to a
// statement transaction. Only correlation metadata changes, so this is
// permitted on locked entries.
func (e *LedgerEntry) consumeAutoMatch(txID, statementTxID string) bool {
	for i := range e.transactions {
		t := &e.transactions[i]
		if t.ID != txID || !t.AutoMatch.IsPending() {
			continue
		}
		t.AutoMatch = ConsumedRef(t.AutoMatch.Token)
		if statementTxID != "" {
			t.ID = statementTxID
		}
		return true
	}
	return false
}

func (e *LedgerEntry) lock()   { e.state = Locked }
func (e *LedgerEntry) unlock() { e.state = Draft }
