package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/envelopeledger/internal/adapter/http/dto"
	"github.com/iho/envelopeledger/internal/domain"
	"github.com/iho/envelopeledger/internal/usecase"
)

type bookServiceStub struct {
	createFn          func(ctx context.Context, input usecase.CreateBookInput) (*domain.LedgerBook, error)
	getFn             func(ctx context.Context, key string) (*domain.LedgerBook, error)
	listFn            func(ctx context.Context) ([]usecase.BookSummary, error)
	validateFn        func(ctx context.Context, key string) error
	addBucketFn       func(ctx context.Context, key string, input usecase.AddBucketInput) (domain.LedgerBucket, error)
	moveBucketFn      func(ctx context.Context, key, code string, account domain.Account) (domain.LedgerBucket, error)
	transferLedgersFn func(ctx context.Context, key string) ([]domain.LedgerBucket, error)
	reconcileFn       func(ctx context.Context, key string, input usecase.MonthEndReconciliationInput) (*domain.ReconciliationResult, error)
	transferFn        func(ctx context.Context, key string, input usecase.TransferInput) (*domain.LedgerEntryLine, error)
	balancesFn        func(ctx context.Context, key string, statement *domain.Statement, begin, end time.Time) (*usecase.BalanceReport, error)
}

func (s *bookServiceStub) CreateBook(ctx context.Context, input usecase.CreateBookInput) (*domain.LedgerBook, error) {
	return s.createFn(ctx, input)
}

func (s *bookServiceStub) GetBook(ctx context.Context, key string) (*domain.LedgerBook, error) {
	return s.getFn(ctx, key)
}

func (s *bookServiceStub) ListBooks(ctx context.Context) ([]usecase.BookSummary, error) {
	return s.listFn(ctx)
}

func (s *bookServiceStub) ValidateBook(ctx context.Context, key string) error {
	return s.validateFn(ctx, key)
}

func (s *bookServiceStub) AddBucket(ctx context.Context, key string, input usecase.AddBucketInput) (domain.LedgerBucket, error) {
	return s.addBucketFn(ctx, key, input)
}

func (s *bookServiceStub) MoveBucket(ctx context.Context, key, code string, account domain.Account) (domain.LedgerBucket, error) {
	return s.moveBucketFn(ctx, key, code, account)
}

func (s *bookServiceStub) TransferLedgers(ctx context.Context, key string) ([]domain.LedgerBucket, error) {
	return s.transferLedgersFn(ctx, key)
}

func (s *bookServiceStub) Reconcile(ctx context.Context, key string, input usecase.MonthEndReconciliationInput) (*domain.ReconciliationResult, error) {
	return s.reconcileFn(ctx, key, input)
}

func (s *bookServiceStub) Transfer(ctx context.Context, key string, input usecase.TransferInput) (*domain.LedgerEntryLine, error) {
	return s.transferFn(ctx, key, input)
}

func (s *bookServiceStub) Balances(ctx context.Context, key string, statement *domain.Statement, begin, end time.Time) (*usecase.BalanceReport, error) {
	return s.balancesFn(ctx, key, statement, begin, end)
}

var (
	testCheque  = domain.Account{Name: "Cheque", Type: domain.AccountCheque, IsSalary: true}
	testSavings = domain.Account{Name: "Savings", Type: domain.AccountSavings}
	testCarMtc  = domain.BudgetCategory{Code: "CAR.MTC", Kind: domain.CategorySavedUpForExpense, Active: true}
)

func newTestRouter(h *BookHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/books", h.Create)
	r.Get("/books", h.List)
	r.Get("/books/{key}", h.Get)
	r.Get("/books/{key}/validate", h.Validate)
	r.Post("/books/{key}/buckets", h.AddBucket)
	r.Put("/books/{key}/buckets/{code}", h.MoveBucket)
	r.Get("/books/{key}/transfer-ledgers", h.TransferLedgers)
	r.Post("/books/{key}/reconciliations", h.Reconcile)
	r.Post("/books/{key}/transfers", h.Transfer)
	r.Post("/books/{key}/balances", h.Balances)
	return r
}

func serve(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func testBucket(t *testing.T) domain.LedgerBucket {
	t.Helper()
	b, err := domain.NewLedgerBucket(domain.BucketSavedUpFor, testCarMtc, testSavings)
	if err != nil {
		t.Fatalf("bucket: %v", err)
	}
	return b
}

func TestBookHandler_Create(t *testing.T) {
	var captured usecase.CreateBookInput
	h := NewBookHandler(&bookServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateBookInput) (*domain.LedgerBook, error) {
			captured = input
			return domain.NewLedgerBook(input.Name, input.StorageKey), nil
		},
	})

	rec := serve(t, newTestRouter(h), http.MethodPost, "/books", dto.CreateBookRequest{Name: "Household", StorageKey: "household"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.StorageKey != "household" || captured.Name != "Household" {
		t.Fatalf("unexpected use case input %+v", captured)
	}

	var resp dto.BookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StorageKey != "household" || len(resp.Reconciliations) != 0 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestBookHandler_Create_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		err    error
		status int
	}{
		{"malformed body", `{"name":`, nil, http.StatusBadRequest},
		{"unknown field", `{"name":"x","storage_key":"x","colour":"red"}`, nil, http.StatusBadRequest},
		{"invalid key", dto.CreateBookRequest{Name: "x", StorageKey: "../etc"}, fmt.Errorf("%w: %q", domain.ErrInvalidStorageKey, "../etc"), http.StatusBadRequest},
		{"duplicate", dto.CreateBookRequest{Name: "x", StorageKey: "x"}, domain.ErrBookExists, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBookHandler(&bookServiceStub{
				createFn: func(ctx context.Context, input usecase.CreateBookInput) (*domain.LedgerBook, error) {
					return nil, tt.err
				},
			})

			rec := serve(t, newTestRouter(h), http.MethodPost, "/books", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestBookHandler_Get_NotFound(t *testing.T) {
	h := NewBookHandler(&bookServiceStub{
		getFn: func(ctx context.Context, key string) (*domain.LedgerBook, error) {
			if key != "missing" {
				t.Fatalf("unexpected key %q", key)
			}
			return nil, domain.ErrBookNotFound
		},
	})

	rec := serve(t, newTestRouter(h), http.MethodGet, "/books/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestBookHandler_List(t *testing.T) {
	h := NewBookHandler(&bookServiceStub{
		listFn: func(ctx context.Context) ([]usecase.BookSummary, error) {
			return []usecase.BookSummary{{StorageKey: "a", Name: "A"}, {StorageKey: "b", Name: "B"}}, nil
		},
	})

	rec := serve(t, newTestRouter(h), http.MethodGet, "/books", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp []dto.BookSummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 || resp[1].StorageKey != "b" {
		t.Fatalf("unexpected summaries %+v", resp)
	}
}

func TestBookHandler_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		h := NewBookHandler(&bookServiceStub{
			validateFn: func(ctx context.Context, key string) error { return nil },
		})
		rec := serve(t, newTestRouter(h), http.MethodGet, "/books/household/validate", nil)

		var resp dto.ValidationResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rec.Code != http.StatusOK || !resp.Valid || resp.StorageKey != "household" {
			t.Fatalf("unexpected response %d %+v", rec.Code, resp)
		}
	})

	t.Run("invalid book lists every problem", func(t *testing.T) {
		h := NewBookHandler(&bookServiceStub{
			validateFn: func(ctx context.Context, key string) error {
				return fmt.Errorf("%w: %w", domain.ErrInvalidLedgerBook,
					errors.Join(errors.New("dates out of order"), errors.New("entry opens at 5")))
			},
		})
		rec := serve(t, newTestRouter(h), http.MethodGet, "/books/household/validate", nil)

		var resp dto.ValidationResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rec.Code != http.StatusOK || resp.Valid {
			t.Fatalf("unexpected response %d %+v", rec.Code, resp)
		}
		if len(resp.Problems) != 2 || resp.Problems[0] != "dates out of order" {
			t.Fatalf("unexpected problems %+v", resp.Problems)
		}
	})

	t.Run("missing book", func(t *testing.T) {
		h := NewBookHandler(&bookServiceStub{
			validateFn: func(ctx context.Context, key string) error { return domain.ErrBookNotFound },
		})
		rec := serve(t, newTestRouter(h), http.MethodGet, "/books/household/validate", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestBookHandler_Buckets(t *testing.T) {
	bucket := testBucket(t)

	h := NewBookHandler(&bookServiceStub{
		addBucketFn: func(ctx context.Context, key string, input usecase.AddBucketInput) (domain.LedgerBucket, error) {
			if input.Kind != domain.BucketSavedUpFor || input.Category.Code != "CAR.MTC" {
				t.Fatalf("unexpected add bucket input %+v", input)
			}
			return bucket, nil
		},
		moveBucketFn: func(ctx context.Context, key, code string, account domain.Account) (domain.LedgerBucket, error) {
			if code != "CAR.MTC" || account.Name != "Cheque" {
				t.Fatalf("unexpected move %s -> %+v", code, account)
			}
			moved := bucket
			moved.StoredIn = account
			return moved, nil
		},
		transferLedgersFn: func(ctx context.Context, key string) ([]domain.LedgerBucket, error) {
			return []domain.LedgerBucket{bucket, domain.SurplusBucket(testSavings)}, nil
		},
	})
	router := newTestRouter(h)

	rec := serve(t, router, http.MethodPost, "/books/household/buckets", dto.AddBucketRequest{
		Kind:     string(domain.BucketSavedUpFor),
		Category: dto.CategoryRequest{Code: "CAR.MTC", Kind: string(domain.CategorySavedUpForExpense)},
		StoredIn: dto.AccountRequest{Name: "Savings", Type: string(domain.AccountSavings)},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(t, router, http.MethodPut, "/books/household/buckets/CAR.MTC", dto.MoveBucketRequest{
		StoredIn: dto.AccountRequest{Name: "Cheque", Type: string(domain.AccountCheque)},
	})
	var moved dto.BucketResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &moved); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || moved.StoredIn.Name != "Cheque" {
		t.Fatalf("unexpected move response %d %+v", rec.Code, moved)
	}

	rec = serve(t, router, http.MethodGet, "/books/household/transfer-ledgers", nil)
	var ledgers []dto.BucketResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &ledgers); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ledgers) != 2 || ledgers[1].CategoryCode != domain.SurplusCode {
		t.Fatalf("unexpected transfer ledgers %+v", ledgers)
	}
}

func TestBookHandler_Reconcile(t *testing.T) {
	date := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	line := domain.NewLedgerEntryLine(date, []domain.BankBalance{{Account: testCheque, Balance: decimal.NewFromInt(2000)}})
	line.Lock()

	var captured usecase.MonthEndReconciliationInput
	h := NewBookHandler(&bookServiceStub{
		reconcileFn: func(ctx context.Context, key string, input usecase.MonthEndReconciliationInput) (*domain.ReconciliationResult, error) {
			captured = input
			return &domain.ReconciliationResult{
				Reconciliation: line,
				Tasks:          []domain.ToDoTask{{Description: "Check statement", SystemGenerated: true}},
			}, nil
		},
	})

	body := `{
		"date": "2024-02-15",
		"bank_balances": [{"account": {"name": "Cheque", "type": "cheque"}, "balance": "2000"}],
		"budget": {"name": "2024", "effective_from": "2023-01-01", "expenses": []},
		"statement": {"last_imported": "2024-02-14", "transactions": []},
		"ignore_warnings": true
	}`
	rec := serve(t, newTestRouter(h), http.MethodPost, "/books/household/reconciliations", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !captured.Date.Equal(date) || !captured.IgnoreWarnings || captured.Statement == nil {
		t.Fatalf("unexpected reconciliation input %+v", captured)
	}

	var resp dto.ReconciliationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Reconciliation.Locked || len(resp.Tasks) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestBookHandler_Reconcile_Warning(t *testing.T) {
	h := NewBookHandler(&bookServiceStub{
		reconcileFn: func(ctx context.Context, key string, input usecase.MonthEndReconciliationInput) (*domain.ReconciliationResult, error) {
			return nil, &domain.ValidationWarning{Source: domain.WarningUncategorised, Message: "1 uncategorised transaction"}
		},
	})

	rec := serve(t, newTestRouter(h), http.MethodPost, "/books/household/reconciliations", `{"date":"2024-02-15"}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.WarningSource != string(domain.WarningUncategorised) {
		t.Fatalf("expected warning source in %+v", resp)
	}
}

func TestBookHandler_Transfer(t *testing.T) {
	line := domain.NewLedgerEntryLine(time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), nil)
	line.Lock()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, http.StatusCreated},
		{"unknown bucket", fmt.Errorf("%w: bucket X/Y", domain.ErrEntryNotFound), http.StatusNotFound},
		{"too small", fmt.Errorf("%w: %w", domain.ErrInvalidState, domain.ErrAmountTooSmall), http.StatusBadRequest},
		{"no reconciliations", fmt.Errorf("%w: ledger book has no reconciliations", domain.ErrInvalidState), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBookHandler(&bookServiceStub{
				transferFn: func(ctx context.Context, key string, input usecase.TransferInput) (*domain.LedgerEntryLine, error) {
					if input.From.CategoryCode != domain.SurplusCode || input.To.Account != "Savings" {
						t.Fatalf("unexpected transfer input %+v", input)
					}
					if tt.err != nil {
						return nil, tt.err
					}
					return line, nil
				},
			})

			rec := serve(t, newTestRouter(h), http.MethodPost, "/books/household/transfers", dto.TransferRequest{
				From:      dto.BucketKeyRequest{CategoryCode: domain.SurplusCode, Account: "Cheque"},
				To:        dto.BucketKeyRequest{CategoryCode: "CAR.MTC", Account: "Savings"},
				Amount:    decimal.RequireFromString("22.00"),
				Narrative: "Top up",
			})
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestBookHandler_Balances(t *testing.T) {
	h := NewBookHandler(&bookServiceStub{
		balancesFn: func(ctx context.Context, key string, statement *domain.Statement, begin, end time.Time) (*usecase.BalanceReport, error) {
			if statement == nil || len(statement.Transactions) != 1 {
				t.Fatalf("unexpected statement %+v", statement)
			}
			if !begin.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)) {
				t.Fatalf("unexpected range %v - %v", begin, end)
			}
			return &usecase.BalanceReport{
				Date:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				Balances: map[string]decimal.Decimal{"POWER": decimal.NewFromInt(-175), domain.SurplusCode: decimal.NewFromInt(500)},
				Surplus:  decimal.NewFromInt(500),
				Overspent: []domain.ReportTransaction{
					{Date: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(-175), Narrative: "POWER overdrawn"},
				},
			}, nil
		},
	})

	body := `{
		"begin": "2024-01-15",
		"end": "2024-01-31",
		"statement": {"last_imported": "2024-02-01", "transactions": [
			{"id": "s1", "date": "2024-01-20", "amount": "-300", "category": {"code": "POWER", "kind": "spent-per-period-expense"}, "account": {"name": "Cheque", "type": "cheque"}}
		]}
	}`
	rec := serve(t, newTestRouter(h), http.MethodPost, "/books/household/balances", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.BalancesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Surplus.Equal(decimal.NewFromInt(500)) || len(resp.Overspent) != 1 {
		t.Fatalf("unexpected balances %+v", resp)
	}
}
