package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/envelopeledger/internal/domain"
)

func TestDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"date only", `"2024-02-15"`, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), false},
		{"rfc3339", `"2024-02-15T00:00:00Z"`, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), false},
		{"null", `null`, time.Time{}, false},
		{"garbage", `"15/02/2024"`, time.Time{}, true},
		{"not a string", `20240215`, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !d.Equal(tt.want) {
				t.Fatalf("got %v, want %v", d.Time, tt.want)
			}
		})
	}
}

func TestDate_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Date{Time: time.Date(2024, 2, 15, 13, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-02-15"` {
		t.Fatalf("unexpected date encoding %s", b)
	}
}

func TestCategoryRequest_ToDomain_DefaultsActive(t *testing.T) {
	c := CategoryRequest{Code: "POWER", Kind: string(domain.CategorySpentPerPeriodExpense)}.ToDomain()
	if !c.Active {
		t.Fatalf("expected category to default to active")
	}

	inactive := false
	c = CategoryRequest{Code: "POWER", Active: &inactive}.ToDomain()
	if c.Active {
		t.Fatalf("expected explicit active=false to be honoured")
	}
}

func TestReconcileRequest_ToUseCaseInput(t *testing.T) {
	body := `{
		"date": "2024-02-15",
		"bank_balances": [{"account": {"name": "Cheque", "type": "cheque", "is_salary": true}, "balance": "2000"}],
		"budget": {
			"name": "2024",
			"effective_from": "2023-01-01",
			"effective_until": "2024-12-31",
			"expenses": [{"category": {"code": "POWER", "kind": "spent-per-period-expense"}, "amount": "201"}]
		},
		"statement": {
			"last_imported": "2024-02-14",
			"transactions": [
				{"id": "s1", "date": "2024-01-20", "amount": "-300", "category": {"code": "POWER", "kind": "spent-per-period-expense"}, "account": {"name": "Cheque", "type": "cheque"}, "description": "Power bill"},
				{"id": "s2", "date": "2024-01-21", "amount": "-5", "account": {"name": "Cheque", "type": "cheque"}, "reference1": "XYZ"}
			]
		},
		"ignore_warnings": true,
		"acknowledged_warnings": ["uncategorised"]
	}`

	var req ReconcileRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}

	input := req.ToUseCaseInput()

	if !input.Date.Equal(time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", input.Date)
	}
	if len(input.BankBalances) != 1 || !input.BankBalances[0].Account.IsSalary {
		t.Fatalf("unexpected bank balances %+v", input.BankBalances)
	}
	if !input.BankBalances[0].Balance.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("unexpected balance %s", input.BankBalances[0].Balance)
	}
	if input.BudgetContext.EffectiveUntil == nil {
		t.Fatalf("expected effective until to be set")
	}
	if e, ok := input.BudgetContext.Model.Expense("POWER"); !ok || !e.Amount.Equal(decimal.NewFromInt(201)) {
		t.Fatalf("unexpected expense %+v", e)
	}
	if input.Statement == nil || len(input.Statement.Transactions) != 2 {
		t.Fatalf("unexpected statement %+v", input.Statement)
	}
	if input.Statement.Transactions[0].CategoryCode() != "POWER" {
		t.Fatalf("expected first transaction to be categorised")
	}
	if input.Statement.Transactions[1].Category != nil {
		t.Fatalf("expected second transaction to be uncategorised")
	}
	if !input.IgnoreWarnings {
		t.Fatalf("expected ignore warnings")
	}
	if len(input.AcknowledgedWarnings) != 1 || input.AcknowledgedWarnings[0] != domain.WarningUncategorised {
		t.Fatalf("unexpected acknowledged warnings %+v", input.AcknowledgedWarnings)
	}
}

func TestReconcileRequest_MissingStatement(t *testing.T) {
	req := ReconcileRequest{}
	if input := req.ToUseCaseInput(); input.Statement != nil {
		t.Fatalf("expected nil statement, got %+v", input.Statement)
	}
}

func TestTransferRequest_ToUseCaseInput(t *testing.T) {
	req := &TransferRequest{
		From:      BucketKeyRequest{CategoryCode: domain.SurplusCode, Account: "Cheque"},
		To:        BucketKeyRequest{CategoryCode: "CAR.MTC", Account: "Savings"},
		Amount:    decimal.RequireFromString("22.00"),
		Narrative: "Top up",
	}

	got := req.ToUseCaseInput()
	if got.From != (domain.BucketKey{CategoryCode: domain.SurplusCode, Account: "Cheque"}) {
		t.Fatalf("unexpected from key %+v", got.From)
	}
	if got.To != (domain.BucketKey{CategoryCode: "CAR.MTC", Account: "Savings"}) {
		t.Fatalf("unexpected to key %+v", got.To)
	}
	if !got.Amount.Equal(decimal.NewFromInt(22)) || got.Narrative != "Top up" {
		t.Fatalf("unexpected transfer input %+v", got)
	}
}

func TestAddBucketRequest_ToUseCaseInput(t *testing.T) {
	req := &AddBucketRequest{
		Kind:     string(domain.BucketSavedUpFor),
		Category: CategoryRequest{Code: "CAR.MTC", Kind: string(domain.CategorySavedUpForExpense)},
		StoredIn: AccountRequest{Name: "Savings", Type: string(domain.AccountSavings)},
	}

	got := req.ToUseCaseInput()
	if got.Kind != domain.BucketSavedUpFor || got.Category.Code != "CAR.MTC" || got.StoredIn.Name != "Savings" {
		t.Fatalf("unexpected bucket input %+v", got)
	}
}
