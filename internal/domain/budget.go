package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryKind classifies a budget category.
type CategoryKind string

const (
	CategorySavedUpForExpense     CategoryKind = "saved-up-for-expense"
	CategorySavingsCommitment     CategoryKind = "savings-commitment"
	CategorySpentPerPeriodExpense CategoryKind = "spent-per-period-expense"
	CategorySurplus               CategoryKind = "surplus"
	CategoryFixedBudgetProject    CategoryKind = "fixed-budget-project"
	CategoryPayCreditCard         CategoryKind = "pay-credit-card"
	CategoryIncome                CategoryKind = "income"
)

// SurplusCode is the category code of the catch-all surplus category.
const SurplusCode = "SURPLUS"

// BudgetCategory is a budget bucket a statement transaction can be assigned to.
type BudgetCategory struct {
	Code        string
	Description string
	Kind        CategoryKind
	Active      bool
}

// SurplusCategory returns the built-in surplus category.
func SurplusCategory() BudgetCategory {
	return BudgetCategory{Code: SurplusCode, Description: "Surplus", Kind: CategorySurplus, Active: true}
}

// Expense is one budgeted allocation for the period.
type Expense struct {
	Category BudgetCategory
	Amount   decimal.Decimal
}

// Budget is the read-only budget model used by reconciliation.
type Budget struct {
	Name          string
	EffectiveFrom time.Time
	Expenses      []Expense
}

// Expense returns the allocation for a category code.
func (b *Budget) Expense(code string) (Expense, bool) {
	if b == nil {
		return Expense{}, false
	}
	for _, e := range b.Expenses {
		if e.Category.Code == code {
			return e, true
		}
	}
	return Expense{}, false
}

// BudgetContext wraps a budget with the window it is in force for.
type BudgetContext struct {
	Model          *Budget
	EffectiveUntil *time.Time
}

// IsActive reports whether the budget is in force at the given instant.
func (c BudgetContext) IsActive(now time.Time) bool {
	if c.Model == nil {
		return false
	}
	if now.Before(c.Model.EffectiveFrom) {
		return false
	}
	return c.EffectiveUntil == nil || now.Before(*c.EffectiveUntil)
}
