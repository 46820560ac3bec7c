package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// TransactionKind distinguishes the ledger-side transaction variants.
type TransactionKind string

const (
	TxCreditDebit       TransactionKind = "credit_debit"
	TxBudgetCredit      TransactionKind = "budget_credit"
	TxBalanceAdjustment TransactionKind = "balance_adjustment"
)

// AutoMatchState is the lifecycle of an auto-matching reference.
type AutoMatchState int

const (
	AutoMatchNone AutoMatchState = iota
	AutoMatchPending
	AutoMatchConsumed
)

// AutoMatchRef correlates an expected bank transfer with the statement
// transaction that will appear in a later period.
type AutoMatchRef struct {
	Token string
	State AutoMatchState
}

// PendingRef returns an unconsumed reference for token.
func PendingRef(token string) AutoMatchRef {
	if token == "" {
		return AutoMatchRef{}
	}
	return AutoMatchRef{Token: token, State: AutoMatchPending}
}

// ConsumedRef returns a reference that has already been matched.
func ConsumedRef(token string) AutoMatchRef {
	if token == "" {
		return AutoMatchRef{}
	}
	return AutoMatchRef{Token: token, State: AutoMatchConsumed}
}

func (r AutoMatchRef) IsPending() bool  { return r.State == AutoMatchPending && r.Token != "" }
func (r AutoMatchRef) IsConsumed() bool { return r.State == AutoMatchConsumed }
func (r AutoMatchRef) IsSet() bool      { return r.Token != "" && r.State != AutoMatchNone }

// LedgerTransaction is a ledger-side movement. Positive amounts are credits.
type LedgerTransaction struct {
	ID        string
	Kind      TransactionKind
	Amount    decimal.Decimal
	Narrative string
	Date      *time.Time
	AutoMatch AutoMatchRef
	// Account is only set on balance adjustments.
	Account *Account
}

// NewTransactionID issues a unique transaction id.
func NewTransactionID() string {
	return ulid.Make().String()
}

// NewCreditDebit creates a plain credit (positive) or debit (negative) transaction.
func NewCreditDebit(amount decimal.Decimal, narrative string, date time.Time) LedgerTransaction {
	return LedgerTransaction{
		ID:        NewTransactionID(),
		Kind:      TxCreditDebit,
		Amount:    amount,
		Narrative: narrative,
		Date:      &date,
	}
}

// NewBudgetCredit creates the credit marking the period's budget allocation.
func NewBudgetCredit(amount decimal.Decimal, narrative string, date time.Time) LedgerTransaction {
	return LedgerTransaction{
		ID:        NewTransactionID(),
		Kind:      TxBudgetCredit,
		Amount:    amount,
		Narrative: narrative,
		Date:      &date,
	}
}

// NewBalanceAdjustment creates an adjustment against an account's bank balance.
func NewBalanceAdjustment(amount decimal.Decimal, narrative string, account Account) LedgerTransaction {
	acc := account
	return LedgerTransaction{
		ID:        NewTransactionID(),
		Kind:      TxBalanceAdjustment,
		Amount:    amount,
		Narrative: narrative,
		Account:   &acc,
	}
}

// IsBudgetCredit reports whether t marks a budgeted amount.
func (t LedgerTransaction) IsBudgetCredit() bool {
	return t.Kind == TxBudgetCredit
}

func (t LedgerTransaction) dateOr(fallback time.Time) time.Time {
	if t.Date == nil {
		return fallback
	}
	return *t.Date
}

// SumAmounts totals the amounts of the given transactions.
func SumAmounts(txs []LedgerTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}
