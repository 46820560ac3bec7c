package usecase_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/envelopeledger/internal/domain"
	"github.com/iho/envelopeledger/internal/usecase"
	"github.com/iho/envelopeledger/internal/usecase/mocks"
)

var (
	cheque  = domain.Account{Name: "Cheque", Type: domain.AccountCheque, IsSalary: true}
	savings = domain.Account{Name: "Savings", Type: domain.AccountSavings}
	visa    = domain.Account{Name: "Visa", Type: domain.AccountCreditCard}

	carMtc  = domain.BudgetCategory{Code: "CAR.MTC", Description: "Car maintenance", Kind: domain.CategorySavedUpForExpense, Active: true}
	power   = domain.BudgetCategory{Code: "POWER", Description: "Electricity", Kind: domain.CategorySpentPerPeriodExpense, Active: true}
	haircut = domain.BudgetCategory{Code: "HAIRCUT", Description: "Haircuts", Kind: domain.CategorySavedUpForExpense, Active: true}
	visaPay = domain.BudgetCategory{Code: "VISA.PAY", Description: "Pay Visa", Kind: domain.CategoryPayCreditCard, Active: true}

	previousDate = day(2024, 1, 15)
	reconDate    = day(2024, 2, 15)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustBucket(t *testing.T, kind domain.BucketKind, category domain.BudgetCategory, account domain.Account) domain.LedgerBucket {
	t.Helper()
	b, err := domain.NewLedgerBucket(kind, category, account)
	require.NoError(t, err)
	return b
}

type bookFixture struct {
	book       *domain.LedgerBook
	carCredit  domain.LedgerTransaction
	carBucket  domain.LedgerBucket
	powBucket  domain.LedgerBucket
	hairBucket domain.LedgerBucket
}

// newBook returns a book with one locked reconciliation on 2024-01-15:
// CAR.MTC 100 (Savings), POWER 125 and HAIRCUT 50 (Cheque), surplus 825.
func newBook(t *testing.T, carRef string) bookFixture {
	t.Helper()
	car := mustBucket(t, domain.BucketSavedUpFor, carMtc, savings)
	pw := mustBucket(t, domain.BucketSpentPerPeriod, power, cheque)
	hair := mustBucket(t, domain.BucketSavedUpFor, haircut, cheque)

	carCredit := domain.NewBudgetCredit(dec("100"), "Budgeted amount", previousDate)
	carCredit.AutoMatch = domain.PendingRef(carRef)

	entries := []*domain.LedgerEntry{
		domain.RestoreLedgerEntry(car, dec("100"), []domain.LedgerTransaction{carCredit}),
		domain.RestoreLedgerEntry(pw, dec("125"), []domain.LedgerTransaction{
			domain.NewBudgetCredit(dec("125"), "Budgeted amount", previousDate),
		}),
		domain.RestoreLedgerEntry(hair, dec("50"), []domain.LedgerTransaction{
			domain.NewBudgetCredit(dec("50"), "Budgeted amount", previousDate),
		}),
	}
	line := domain.RestoreLedgerEntryLine(previousDate, []domain.BankBalance{
		{Account: cheque, Balance: dec("1000")},
		{Account: savings, Balance: dec("100")},
	}, nil, entries, "")

	book := domain.RestoreLedgerBook("Household", "household", previousDate,
		[]domain.LedgerBucket{car, pw, hair}, []*domain.LedgerEntryLine{line})

	return bookFixture{book: book, carCredit: carCredit, carBucket: car, powBucket: pw, hairBucket: hair}
}

func newBudget() *domain.Budget {
	return &domain.Budget{
		Name:          "2024",
		EffectiveFrom: day(2023, 1, 1),
		Expenses: []domain.Expense{
			{Category: carMtc, Amount: dec("150")},
			{Category: power, Amount: dec("201")},
			{Category: haircut, Amount: dec("20")},
		},
	}
}

func bankBalances(chequeBalance, savingsBalance string) []domain.BankBalance {
	return []domain.BankBalance{
		{Account: cheque, Balance: dec(chequeBalance)},
		{Account: savings, Balance: dec(savingsBalance)},
	}
}

func stmtTx(id string, date time.Time, amount string, category *domain.BudgetCategory, account domain.Account, description string, refs ...string) domain.StatementTransaction {
	st := domain.StatementTransaction{
		ID:          id,
		Date:        date,
		Amount:      dec(amount),
		Category:    category,
		Account:     account,
		Description: description,
	}
	if len(refs) > 0 {
		st.Reference1 = refs[0]
	}
	return st
}

func basicStatement() *domain.Statement {
	return &domain.Statement{
		StorageKey:   "statement",
		LastImported: day(2024, 2, 14),
		Transactions: []domain.StatementTransaction{
			stmtTx("s1", day(2024, 1, 20), "-300", &power, cheque, "Power bill"),
			stmtTx("s2", day(2024, 1, 25), "-200", &carMtc, savings, "Service"),
			stmtTx("s3", day(2024, 2, 1), "-25", &haircut, cheque, "Barber"),
		},
	}
}

func newBuilder() *usecase.ReconciliationBuilder {
	return usecase.NewReconciliationBuilder(&mocks.SequenceIDGenerator{}, zerolog.Nop())
}

func balanceOf(t *testing.T, line *domain.LedgerEntryLine, code string) decimal.Decimal {
	t.Helper()
	e, ok := line.Entry(code)
	require.True(t, ok, "entry %s missing", code)
	return e.Balance()
}
