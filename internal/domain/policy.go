package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Narratives of compensating transactions appended by reconciliation policies.
const (
	NarrativeSupplementOverdrawn      = "Supplement from surplus (overdrawn)"
	NarrativeSupplementLessThanBudget = "Supplement from surplus (less than budget)"
	NarrativeSupplementToOpening      = "Supplement from surplus (less than opening balance)"
	NarrativeRemoveExcessToBudget     = "Remove excess to surplus (more than budget)"
	NarrativeRemoveExcessToOpening    = "Remove excess to surplus (more than opening balance)"
	NarrativeRemoveExcessNoBudget     = "Remove excess to surplus (no budget amount)"
)

// BucketPolicy is the behaviour owned by each bucket kind.
type BucketPolicy interface {
	// ValidateCategory rejects budget categories the bucket kind cannot track.
	ValidateCategory(category BudgetCategory) error
	// Apply may append one compensating transaction to txs and reports
	// whether it did.
	Apply(txs []LedgerTransaction, date time.Time, opening decimal.Decimal) ([]LedgerTransaction, bool)
}

// PolicyFor returns the policy for a bucket kind.
func PolicyFor(kind BucketKind) (BucketPolicy, error) {
	switch kind {
	case BucketSavedUpFor:
		return savedUpForPolicy{}, nil
	case BucketSpentPerPeriod:
		return spentPerPeriodPolicy{}, nil
	case BucketSurplus:
		return surplusPolicy{}, nil
	default:
		return nil, fmt.Errorf("%w: bucket kind %q", ErrNotSupported, kind)
	}
}

func budgetAmount(txs []LedgerTransaction) (decimal.Decimal, bool) {
	for _, t := range txs {
		if t.IsBudgetCredit() {
			return t.Amount, true
		}
	}
	return decimal.Zero, false
}

func compensate(txs []LedgerTransaction, amount decimal.Decimal, narrative string, date time.Time) ([]LedgerTransaction, bool) {
	if amount.IsZero() {
		return txs, false
	}
	return append(txs, NewCreditDebit(amount, narrative, date)), true
}

// savedUpForPolicy lets the balance accumulate but never fall below the
// budgeted amount (or zero when nothing is budgeted).
type savedUpForPolicy struct{}

func (savedUpForPolicy) ValidateCategory(c BudgetCategory) error {
	switch c.Kind {
	case CategorySavedUpForExpense, CategorySavingsCommitment:
		return nil
	}
	return fmt.Errorf("%w: saved-up-for bucket cannot track %s category %s", ErrNotSupported, c.Kind, c.Code)
}

func (savedUpForPolicy) Apply(txs []LedgerTransaction, date time.Time, opening decimal.Decimal) ([]LedgerTransaction, bool) {
	closing := opening.Add(SumAmounts(txs))
	budget, ok := budgetAmount(txs)
	if !ok {
		if closing.IsNegative() {
			return compensate(txs, closing.Neg(), NarrativeSupplementOverdrawn, date)
		}
		return txs, false
	}

	if closing.LessThan(budget) {
		narrative := NarrativeSupplementLessThanBudget
		if closing.IsNegative() {
			narrative = NarrativeSupplementOverdrawn
		}
		return compensate(txs, budget.Sub(closing), narrative, date)
	}
	return txs, false
}

// spentPerPeriodPolicy levels the balance every period to the larger of the
// budgeted amount and the opening balance, or to zero without a budget.
type spentPerPeriodPolicy struct{}

func (spentPerPeriodPolicy) ValidateCategory(c BudgetCategory) error {
	if c.Kind == CategorySpentPerPeriodExpense {
		return nil
	}
	return fmt.Errorf("%w: spent-per-period bucket cannot track %s category %s", ErrNotSupported, c.Kind, c.Code)
}

func (spentPerPeriodPolicy) Apply(txs []LedgerTransaction, date time.Time, opening decimal.Decimal) ([]LedgerTransaction, bool) {
	closing := opening.Add(SumAmounts(txs))
	budget, ok := budgetAmount(txs)
	if !ok {
		narrative := NarrativeSupplementOverdrawn
		if closing.IsPositive() {
			narrative = NarrativeRemoveExcessNoBudget
		}
		return compensate(txs, closing.Neg(), narrative, date)
	}

	openingIsTarget := opening.GreaterThan(budget)
	target := decimal.Max(opening, budget)
	switch {
	case closing.LessThan(target):
		if openingIsTarget {
			return compensate(txs, target.Sub(closing), NarrativeSupplementToOpening, date)
		}
		return compensate(txs, target.Sub(closing), NarrativeSupplementLessThanBudget, date)
	case closing.GreaterThan(target):
		if openingIsTarget {
			return compensate(txs, target.Sub(closing), NarrativeRemoveExcessToOpening, date)
		}
		return compensate(txs, target.Sub(closing), NarrativeRemoveExcessToBudget, date)
	}
	return txs, false
}

// surplusPolicy never compensates; surplus absorbs everything else.
type surplusPolicy struct{}

func (surplusPolicy) ValidateCategory(c BudgetCategory) error {
	switch c.Kind {
	case CategorySurplus, CategoryFixedBudgetProject:
		return nil
	}
	return fmt.Errorf("%w: surplus bucket cannot track %s category %s", ErrNotSupported, c.Kind, c.Code)
}

func (surplusPolicy) Apply(txs []LedgerTransaction, _ time.Time, _ decimal.Decimal) ([]LedgerTransaction, bool) {
	return txs, false
}
