package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/envelopeledger/internal/domain"
	"github.com/iho/envelopeledger/internal/usecase"
)

// Date is a calendar date accepted either as 2006-01-02 or RFC 3339.
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("date %q: expected YYYY-MM-DD or RFC 3339", s)
	}
	d.Time = t.UTC()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(time.DateOnly))
}

// AccountRequest identifies a bank account.
type AccountRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsSalary bool   `json:"is_salary,omitempty"`
}

// ToDomain converts to a domain account.
func (r AccountRequest) ToDomain() domain.Account {
	return domain.Account{Name: r.Name, Type: domain.AccountType(r.Type), IsSalary: r.IsSalary}
}

// CategoryRequest identifies a budget category.
type CategoryRequest struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Kind        string `json:"kind"`
	Active      *bool  `json:"active,omitempty"`
}

// ToDomain converts to a domain category. Categories are active unless
// the request says otherwise.
func (r CategoryRequest) ToDomain() domain.BudgetCategory {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return domain.BudgetCategory{
		Code:        r.Code,
		Description: r.Description,
		Kind:        domain.CategoryKind(r.Kind),
		Active:      active,
	}
}

// CreateBookRequest represents a request to create a ledger book.
type CreateBookRequest struct {
	Name       string `json:"name"`
	StorageKey string `json:"storage_key"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateBookRequest) ToUseCaseInput() usecase.CreateBookInput {
	return usecase.CreateBookInput{Name: r.Name, StorageKey: r.StorageKey}
}

// AddBucketRequest represents a request to start tracking a ledger bucket.
type AddBucketRequest struct {
	Kind     string          `json:"kind"`
	Category CategoryRequest `json:"category"`
	StoredIn AccountRequest  `json:"stored_in"`
}

// ToUseCaseInput converts to use case input.
func (r *AddBucketRequest) ToUseCaseInput() usecase.AddBucketInput {
	return usecase.AddBucketInput{
		Kind:     domain.BucketKind(r.Kind),
		Category: r.Category.ToDomain(),
		StoredIn: r.StoredIn.ToDomain(),
	}
}

// MoveBucketRequest represents a request to store a bucket in another account.
type MoveBucketRequest struct {
	StoredIn AccountRequest `json:"stored_in"`
}

// BankBalanceRequest is one account's closing bank balance.
type BankBalanceRequest struct {
	Account AccountRequest  `json:"account"`
	Balance decimal.Decimal `json:"balance"`
}

func bankBalancesToDomain(in []BankBalanceRequest) []domain.BankBalance {
	out := make([]domain.BankBalance, len(in))
	for i, b := range in {
		out[i] = domain.BankBalance{Account: b.Account.ToDomain(), Balance: b.Balance}
	}
	return out
}

// ExpenseRequest is one budgeted expense.
type ExpenseRequest struct {
	Category CategoryRequest `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// BudgetRequest carries the budget model used by a reconciliation.
type BudgetRequest struct {
	Name           string           `json:"name"`
	EffectiveFrom  Date             `json:"effective_from"`
	EffectiveUntil *Date            `json:"effective_until,omitempty"`
	Expenses       []ExpenseRequest `json:"expenses"`
}

// ToDomain converts to a domain budget context.
func (r BudgetRequest) ToDomain() domain.BudgetContext {
	budget := &domain.Budget{
		Name:          r.Name,
		EffectiveFrom: r.EffectiveFrom.Time,
		Expenses:      make([]domain.Expense, len(r.Expenses)),
	}
	for i, e := range r.Expenses {
		budget.Expenses[i] = domain.Expense{Category: e.Category.ToDomain(), Amount: e.Amount}
	}

	ctx := domain.BudgetContext{Model: budget}
	if r.EffectiveUntil != nil {
		until := r.EffectiveUntil.Time
		ctx.EffectiveUntil = &until
	}
	return ctx
}

// StatementTransactionRequest is one imported bank transaction.
type StatementTransactionRequest struct {
	ID              string           `json:"id"`
	Date            Date             `json:"date"`
	Amount          decimal.Decimal  `json:"amount"`
	Category        *CategoryRequest `json:"category,omitempty"`
	Account         AccountRequest   `json:"account"`
	Description     string           `json:"description,omitempty"`
	Reference1      string           `json:"reference1,omitempty"`
	Reference2      string           `json:"reference2,omitempty"`
	Reference3      string           `json:"reference3,omitempty"`
	TransactionType string           `json:"transaction_type,omitempty"`
}

// StatementRequest carries the imported bank statement.
type StatementRequest struct {
	StorageKey   string                        `json:"storage_key,omitempty"`
	LastImported Date                          `json:"last_imported"`
	Transactions []StatementTransactionRequest `json:"transactions"`
}

// ToDomain converts to a domain statement. A nil request yields nil.
func (r *StatementRequest) ToDomain() *domain.Statement {
	if r == nil {
		return nil
	}
	s := &domain.Statement{
		StorageKey:   r.StorageKey,
		LastImported: r.LastImported.Time,
		Transactions: make([]domain.StatementTransaction, len(r.Transactions)),
	}
	for i, t := range r.Transactions {
		st := domain.StatementTransaction{
			ID:              t.ID,
			Date:            t.Date.Time,
			Amount:          t.Amount,
			Account:         t.Account.ToDomain(),
			Description:     t.Description,
			Reference1:      t.Reference1,
			Reference2:      t.Reference2,
			Reference3:      t.Reference3,
			TransactionType: t.TransactionType,
		}
		if t.Category != nil {
			c := t.Category.ToDomain()
			st.Category = &c
		}
		s.Transactions[i] = st
	}
	return s
}

// ReconcileRequest represents a month end reconciliation request.
type ReconcileRequest struct {
	Date                 Date                 `json:"date"`
	BankBalances         []BankBalanceRequest `json:"bank_balances"`
	Budget               BudgetRequest        `json:"budget"`
	Statement            *StatementRequest    `json:"statement"`
	IgnoreWarnings       bool                 `json:"ignore_warnings,omitempty"`
	AcknowledgedWarnings []string             `json:"acknowledged_warnings,omitempty"`
}

// ToUseCaseInput converts to use case input. The book is loaded by the use case.
func (r *ReconcileRequest) ToUseCaseInput() usecase.MonthEndReconciliationInput {
	acknowledged := make([]domain.WarningSource, len(r.AcknowledgedWarnings))
	for i, w := range r.AcknowledgedWarnings {
		acknowledged[i] = domain.WarningSource(w)
	}
	return usecase.MonthEndReconciliationInput{
		Date:                 r.Date.Time,
		BudgetContext:        r.Budget.ToDomain(),
		Statement:            r.Statement.ToDomain(),
		BankBalances:         bankBalancesToDomain(r.BankBalances),
		IgnoreWarnings:       r.IgnoreWarnings,
		AcknowledgedWarnings: acknowledged,
	}
}

// BucketKeyRequest identifies a ledger bucket by category and account.
type BucketKeyRequest struct {
	CategoryCode string `json:"category_code"`
	Account      string `json:"account"`
}

// TransferRequest represents a request to move funds between buckets.
type TransferRequest struct {
	From      BucketKeyRequest `json:"from"`
	To        BucketKeyRequest `json:"to"`
	Amount    decimal.Decimal  `json:"amount"`
	Narrative string           `json:"narrative"`
}

// ToUseCaseInput converts to use case input.
func (r *TransferRequest) ToUseCaseInput() usecase.TransferInput {
	return usecase.TransferInput{
		From:      domain.BucketKey{CategoryCode: r.From.CategoryCode, Account: r.From.Account},
		To:        domain.BucketKey{CategoryCode: r.To.CategoryCode, Account: r.To.Account},
		Amount:    r.Amount,
		Narrative: r.Narrative,
	}
}

// BalancesRequest asks for the current period view given statement activity.
type BalancesRequest struct {
	Begin     Date              `json:"begin"`
	End       Date              `json:"end"`
	Statement *StatementRequest `json:"statement"`
}
