package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const noDescription = "[No Description]"

// StatementTransaction is one imported bank transaction. Debits are negative.
type StatementTransaction struct {
	ID              string
	Date            time.Time
	Amount          decimal.Decimal
	Category        *BudgetCategory
	Account         Account
	Description     string
	Reference1      string
	Reference2      string
	Reference3      string
	TransactionType string
}

// CategoryCode returns the assigned category code or "" when uncategorised.
func (t StatementTransaction) CategoryCode() string {
	if t.Category == nil {
		return ""
	}
	return t.Category.Code
}

// References returns the non-blank reference fields, trimmed.
func (t StatementTransaction) References() []string {
	refs := make([]string, 0, 3)
	for _, r := range []string{t.Reference1, t.Reference2, t.Reference3} {
		if r = strings.TrimSpace(r); r != "" {
			refs = append(refs, r)
		}
	}
	return refs
}

// HasReference reports whether any reference field equals token.
func (t StatementTransaction) HasReference(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	for _, r := range t.References() {
		if r == token {
			return true
		}
	}
	return false
}

// Narrative derives a ledger narrative from the description, references or type.
func (t StatementTransaction) Narrative() string {
	if d := strings.TrimSpace(t.Description); d != "" {
		return d
	}
	if refs := t.References(); len(refs) > 0 {
		return strings.Join(refs, "; ")
	}
	if tt := strings.TrimSpace(t.TransactionType); tt != "" {
		return tt
	}
	return noDescription
}

// Statement is the read-only set of imported bank transactions.
type Statement struct {
	StorageKey   string
	LastImported time.Time
	Transactions []StatementTransaction
}

// InRange returns transactions with start <= date < end, in statement order.
func (s *Statement) InRange(start, end time.Time) []StatementTransaction {
	if s == nil {
		return nil
	}
	var out []StatementTransaction
	for _, t := range s.Transactions {
		if !t.Date.Before(start) && t.Date.Before(end) {
			out = append(out, t)
		}
	}
	return out
}

// OnOrAfter returns transactions dated on or after the given date.
func (s *Statement) OnOrAfter(date time.Time) []StatementTransaction {
	if s == nil {
		return nil
	}
	var out []StatementTransaction
	for _, t := range s.Transactions {
		if !t.Date.Before(date) {
			out = append(out, t)
		}
	}
	return out
}
