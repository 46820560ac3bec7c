package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var (
	cheque  = Account{Name: "Cheque", Type: AccountCheque, IsSalary: true}
	savings = Account{Name: "Savings", Type: AccountSavings}
	visa    = Account{Name: "Visa", Type: AccountCreditCard}

	carMtc = BudgetCategory{Code: "CAR.MTC", Description: "Car maintenance", Kind: CategorySavedUpForExpense, Active: true}
	power  = BudgetCategory{Code: "POWER", Description: "Electricity", Kind: CategorySpentPerPeriodExpense, Active: true}
	hair   = BudgetCategory{Code: "HAIRCUT", Description: "Haircuts", Kind: CategorySavedUpForExpense, Active: true}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustBucket(t *testing.T, kind BucketKind, category BudgetCategory, account Account) LedgerBucket {
	t.Helper()
	b, err := NewLedgerBucket(kind, category, account)
	if err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}
	return b
}

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}
