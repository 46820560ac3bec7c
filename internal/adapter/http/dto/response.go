package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/envelopeledger/internal/domain"
	"github.com/iho/envelopeledger/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	// WarningSource is set when the request can be retried with the
	// warning acknowledged.
	WarningSource string `json:"warning_source,omitempty"`
}

// AccountResponse represents a bank account in API responses.
type AccountResponse struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsSalary bool   `json:"is_salary,omitempty"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a domain.Account) AccountResponse {
	return AccountResponse{Name: a.Name, Type: string(a.Type), IsSalary: a.IsSalary}
}

// BucketResponse represents a ledger bucket in API responses.
type BucketResponse struct {
	Kind         string          `json:"kind"`
	CategoryCode string          `json:"category_code"`
	Description  string          `json:"description,omitempty"`
	CategoryKind string          `json:"category_kind"`
	Active       bool            `json:"active"`
	StoredIn     AccountResponse `json:"stored_in"`
}

// BucketFromDomain converts a domain bucket to a response.
func BucketFromDomain(b domain.LedgerBucket) BucketResponse {
	return BucketResponse{
		Kind:         string(b.Kind),
		CategoryCode: b.Category.Code,
		Description:  b.Category.Description,
		CategoryKind: string(b.Category.Kind),
		Active:       b.Category.Active,
		StoredIn:     AccountFromDomain(b.StoredIn),
	}
}

// BucketsFromDomain converts domain buckets to responses.
func BucketsFromDomain(buckets []domain.LedgerBucket) []BucketResponse {
	result := make([]BucketResponse, len(buckets))
	for i, b := range buckets {
		result[i] = BucketFromDomain(b)
	}
	return result
}

// TransactionResponse represents a ledger transaction in API responses.
type TransactionResponse struct {
	ID             string           `json:"id"`
	Kind           string           `json:"kind"`
	Amount         decimal.Decimal  `json:"amount"`
	Narrative      string           `json:"narrative"`
	Date           *time.Time       `json:"date,omitempty"`
	AutoMatchRef   string           `json:"auto_match_reference,omitempty"`
	AutoMatchState string           `json:"auto_match_state,omitempty"`
	Account        *AccountResponse `json:"account,omitempty"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t domain.LedgerTransaction) TransactionResponse {
	resp := TransactionResponse{
		ID:        t.ID,
		Kind:      string(t.Kind),
		Amount:    t.Amount,
		Narrative: t.Narrative,
		Date:      t.Date,
	}
	switch {
	case t.AutoMatch.IsPending():
		resp.AutoMatchRef, resp.AutoMatchState = t.AutoMatch.Token, "pending"
	case t.AutoMatch.IsConsumed():
		resp.AutoMatchRef, resp.AutoMatchState = t.AutoMatch.Token, "consumed"
	}
	if t.Account != nil {
		account := AccountFromDomain(*t.Account)
		resp.Account = &account
	}
	return resp
}

func transactionsFromDomain(txs []domain.LedgerTransaction) []TransactionResponse {
	result := make([]TransactionResponse, len(txs))
	for i, t := range txs {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// EntryResponse represents one bucket's ledger entry on a reconciliation.
type EntryResponse struct {
	Bucket         BucketResponse        `json:"bucket"`
	OpeningBalance decimal.Decimal       `json:"opening_balance"`
	NetAmount      decimal.Decimal       `json:"net_amount"`
	Balance        decimal.Decimal       `json:"balance"`
	Transactions   []TransactionResponse `json:"transactions"`
}

// BankBalanceResponse is one account's bank balance.
type BankBalanceResponse struct {
	Account AccountResponse `json:"account"`
	Balance decimal.Decimal `json:"balance"`
}

func bankBalancesFromDomain(in []domain.BankBalance) []BankBalanceResponse {
	result := make([]BankBalanceResponse, len(in))
	for i, b := range in {
		result[i] = BankBalanceResponse{Account: AccountFromDomain(b.Account), Balance: b.Balance}
	}
	return result
}

// LineResponse represents a reconciliation in API responses.
type LineResponse struct {
	Date               Date                  `json:"date"`
	Locked             bool                  `json:"locked"`
	Remarks            string                `json:"remarks,omitempty"`
	BankBalances       []BankBalanceResponse `json:"bank_balances"`
	BalanceAdjustments []TransactionResponse `json:"balance_adjustments"`
	Entries            []EntryResponse       `json:"entries"`
	TotalBankBalance   decimal.Decimal       `json:"total_bank_balance"`
	LedgerBalance      decimal.Decimal       `json:"ledger_balance"`
	CalculatedSurplus  decimal.Decimal       `json:"calculated_surplus"`
	SurplusBalances    []BankBalanceResponse `json:"surplus_balances"`
}

// LineFromDomain converts a domain reconciliation to a response.
func LineFromDomain(l *domain.LedgerEntryLine) *LineResponse {
	entries := l.Entries()
	resp := &LineResponse{
		Date:               Date{Time: l.Date()},
		Locked:             !l.IsNew(),
		Remarks:            l.Remarks(),
		BankBalances:       bankBalancesFromDomain(l.BankBalances()),
		BalanceAdjustments: transactionsFromDomain(l.BalanceAdjustments()),
		Entries:            make([]EntryResponse, len(entries)),
		TotalBankBalance:   l.TotalBankBalance(),
		LedgerBalance:      l.LedgerBalance(),
		CalculatedSurplus:  l.CalculatedSurplus(),
		SurplusBalances:    bankBalancesFromDomain(l.SurplusBalances()),
	}
	for i, e := range entries {
		resp.Entries[i] = EntryResponse{
			Bucket:         BucketFromDomain(e.Bucket()),
			OpeningBalance: e.OpeningBalance(),
			NetAmount:      e.NetAmount(),
			Balance:        e.Balance(),
			Transactions:   transactionsFromDomain(e.Transactions()),
		}
	}
	return resp
}

// BookResponse represents a ledger book in API responses.
type BookResponse struct {
	Name            string           `json:"name"`
	StorageKey      string           `json:"storage_key"`
	Modified        time.Time        `json:"modified"`
	Ledgers         []BucketResponse `json:"ledgers"`
	Reconciliations []*LineResponse  `json:"reconciliations"`
}

// BookFromDomain converts a domain ledger book to a response.
func BookFromDomain(b *domain.LedgerBook) *BookResponse {
	lines := b.Reconciliations()
	resp := &BookResponse{
		Name:            b.Name,
		StorageKey:      b.StorageKey,
		Modified:        b.Modified,
		Ledgers:         BucketsFromDomain(b.Ledgers()),
		Reconciliations: make([]*LineResponse, len(lines)),
	}
	for i, l := range lines {
		resp.Reconciliations[i] = LineFromDomain(l)
	}
	return resp
}

// BookSummaryResponse is the listing view of a ledger book.
type BookSummaryResponse struct {
	StorageKey string    `json:"storage_key"`
	Name       string    `json:"name"`
	Modified   time.Time `json:"modified"`
}

// BookSummariesFromUseCase converts book summaries to responses.
func BookSummariesFromUseCase(summaries []usecase.BookSummary) []BookSummaryResponse {
	result := make([]BookSummaryResponse, len(summaries))
	for i, s := range summaries {
		result[i] = BookSummaryResponse{StorageKey: s.StorageKey, Name: s.Name, Modified: s.Modified}
	}
	return result
}

// TransferTaskResponse details a bank transfer the user must make.
type TransferTaskResponse struct {
	Reference    string          `json:"reference"`
	Amount       decimal.Decimal `json:"amount"`
	Source       AccountResponse `json:"source"`
	Destination  AccountResponse `json:"destination"`
	CategoryCode string          `json:"category_code"`
}

// TaskResponse is a to-do task raised by a reconciliation.
type TaskResponse struct {
	Description     string                `json:"description"`
	SystemGenerated bool                  `json:"system_generated"`
	CanDelete       bool                  `json:"can_delete"`
	Transfer        *TransferTaskResponse `json:"transfer,omitempty"`
}

// TasksFromDomain converts domain tasks to responses.
func TasksFromDomain(tasks []domain.ToDoTask) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = TaskResponse{
			Description:     t.Description,
			SystemGenerated: t.SystemGenerated,
			CanDelete:       t.CanDelete,
		}
		if t.Transfer != nil {
			result[i].Transfer = &TransferTaskResponse{
				Reference:    t.Transfer.Reference,
				Amount:       t.Transfer.Amount,
				Source:       AccountFromDomain(t.Transfer.Source),
				Destination:  AccountFromDomain(t.Transfer.Destination),
				CategoryCode: t.Transfer.CategoryCode,
			}
		}
	}
	return result
}

// AutoMatchResponse records a reference matched during a reconciliation.
type AutoMatchResponse struct {
	LineDate               Date   `json:"line_date"`
	CategoryCode           string `json:"category_code"`
	LedgerTransactionID    string `json:"ledger_transaction_id"`
	StatementTransactionID string `json:"statement_transaction_id"`
	Reference              string `json:"reference"`
}

// ReconciliationResponse is the outcome of a month end reconciliation.
type ReconciliationResponse struct {
	Reconciliation *LineResponse       `json:"reconciliation"`
	Tasks          []TaskResponse      `json:"tasks"`
	AutoMatches    []AutoMatchResponse `json:"auto_matches"`
}

// ReconciliationFromDomain converts a reconciliation result to a response.
func ReconciliationFromDomain(r *domain.ReconciliationResult) *ReconciliationResponse {
	resp := &ReconciliationResponse{
		Reconciliation: LineFromDomain(r.Reconciliation),
		Tasks:          TasksFromDomain(r.Tasks),
		AutoMatches:    make([]AutoMatchResponse, len(r.AutoMatches)),
	}
	for i, m := range r.AutoMatches {
		resp.AutoMatches[i] = AutoMatchResponse{
			LineDate:               Date{Time: m.LineDate},
			CategoryCode:           m.CategoryCode,
			LedgerTransactionID:    m.LedgerTransactionID,
			StatementTransactionID: m.StatementTransactionID,
			Reference:              m.Reference,
		}
	}
	return resp
}

// BalancesResponse is the current period view of a ledger book.
type BalancesResponse struct {
	Date      Date                       `json:"date"`
	Balances  map[string]decimal.Decimal `json:"balances"`
	Surplus   decimal.Decimal            `json:"surplus"`
	Overspent []domain.ReportTransaction `json:"overspent"`
}

// BalancesFromUseCase converts a balance report to a response.
func BalancesFromUseCase(r *usecase.BalanceReport) *BalancesResponse {
	return &BalancesResponse{
		Date:      Date{Time: r.Date},
		Balances:  r.Balances,
		Surplus:   r.Surplus,
		Overspent: r.Overspent,
	}
}

// ValidationResponse reports the outcome of a structural book validation.
type ValidationResponse struct {
	StorageKey string   `json:"storage_key"`
	Valid      bool     `json:"valid"`
	Problems   []string `json:"problems,omitempty"`
}

// RuleResponse represents a matching rule in API responses.
type RuleResponse struct {
	ID           string           `json:"id"`
	CategoryCode string           `json:"category_code"`
	Description  *string          `json:"description,omitempty"`
	References   []string         `json:"references"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	SingleUse    bool             `json:"single_use"`
	CreatedAt    time.Time        `json:"created_at"`
}

// RulesFromDomain converts matching rules to responses.
func RulesFromDomain(rules []*domain.MatchingRule) []RuleResponse {
	result := make([]RuleResponse, len(rules))
	for i, r := range rules {
		result[i] = RuleResponse{
			ID:           r.ID,
			CategoryCode: r.CategoryCode,
			Description:  r.Description,
			References:   r.References,
			Amount:       r.Amount,
			SingleUse:    r.SingleUse,
			CreatedAt:    r.CreatedAt,
		}
	}
	return result
}
