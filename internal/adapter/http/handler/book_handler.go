package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/envelopeledger/internal/adapter/http/dto"
	"github.com/iho/envelopeledger/internal/domain"
	"github.com/iho/envelopeledger/internal/usecase"
)

// BookService is the ledger book use case surface served over HTTP.
type BookService interface {
	CreateBook(ctx context.Context, input usecase.CreateBookInput) (*domain.LedgerBook, error)
	GetBook(ctx context.Context, storageKey string) (*domain.LedgerBook, error)
	ListBooks(ctx context.Context) ([]usecase.BookSummary, error)
	ValidateBook(ctx context.Context, storageKey string) error
	AddBucket(ctx context.Context, storageKey string, input usecase.AddBucketInput) (domain.LedgerBucket, error)
	MoveBucket(ctx context.Context, storageKey, categoryCode string, account domain.Account) (domain.LedgerBucket, error)
	TransferLedgers(ctx context.Context, storageKey string) ([]domain.LedgerBucket, error)
	Reconcile(ctx context.Context, storageKey string, input usecase.MonthEndReconciliationInput) (*domain.ReconciliationResult, error)
	Transfer(ctx context.Context, storageKey string, input usecase.TransferInput) (*domain.LedgerEntryLine, error)
	Balances(ctx context.Context, storageKey string, statement *domain.Statement, begin, end time.Time) (*usecase.BalanceReport, error)
}

// BookHandler handles ledger book HTTP requests.
type BookHandler struct {
	books BookService
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(books BookService) *BookHandler {
	return &BookHandler{books: books}
}

// Create creates an empty ledger book.
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	book, err := h.books.CreateBook(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to create ledger book", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.BookFromDomain(book))
}

// List lists stored ledger books.
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.ListBooks(r.Context())
	if err != nil {
		writeDomainError(w, "failed to list ledger books", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BookSummariesFromUseCase(books))
}

// Get retrieves a ledger book by storage key.
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	book, err := h.books.GetBook(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeDomainError(w, "failed to get ledger book", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BookFromDomain(book))
}

// Validate runs the structural validation of a ledger book. An invalid
// book is reported in the body, not as an error status.
func (h *BookHandler) Validate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	err := h.books.ValidateBook(r.Context(), key)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, dto.ValidationResponse{StorageKey: key, Valid: true})
	case errors.Is(err, domain.ErrInvalidLedgerBook):
		writeJSON(w, http.StatusOK, dto.ValidationResponse{StorageKey: key, Problems: problems(err)})
	default:
		writeDomainError(w, "failed to validate ledger book", err)
	}
}

// AddBucket starts tracking a ledger bucket.
func (h *BookHandler) AddBucket(w http.ResponseWriter, r *http.Request) {
	var req dto.AddBucketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	bucket, err := h.books.AddBucket(r.Context(), chi.URLParam(r, "key"), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to add ledger bucket", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.BucketFromDomain(bucket))
}

// MoveBucket stores a tracked bucket's funds in another account.
func (h *BookHandler) MoveBucket(w http.ResponseWriter, r *http.Request) {
	var req dto.MoveBucketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	bucket, err := h.books.MoveBucket(r.Context(), chi.URLParam(r, "key"), chi.URLParam(r, "code"), req.StoredIn.ToDomain())
	if err != nil {
		writeDomainError(w, "failed to move ledger bucket", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BucketFromDomain(bucket))
}

// TransferLedgers lists the buckets funds can be moved between.
func (h *BookHandler) TransferLedgers(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.books.TransferLedgers(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeDomainError(w, "failed to list transfer ledgers", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BucketsFromDomain(buckets))
}

// Reconcile runs a month end reconciliation.
func (h *BookHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req dto.ReconcileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.books.Reconcile(r.Context(), chi.URLParam(r, "key"), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to reconcile ledger book", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ReconciliationFromDomain(result))
}

// Transfer moves funds between two buckets on the most recent reconciliation.
func (h *BookHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	line, err := h.books.Transfer(r.Context(), chi.URLParam(r, "key"), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to transfer funds", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.LineFromDomain(line))
}

// Balances reports the current period balances for the supplied statement.
func (h *BookHandler) Balances(w http.ResponseWriter, r *http.Request) {
	var req dto.BalancesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	report, err := h.books.Balances(r.Context(), chi.URLParam(r, "key"), req.Statement.ToDomain(), req.Begin.Time, req.End.Time)
	if err != nil {
		writeDomainError(w, "failed to calculate balances", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalancesFromUseCase(report))
}

// problems flattens a joined validation error into one message per problem.
func problems(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			if errors.Is(e, domain.ErrInvalidLedgerBook) {
				continue
			}
			out = append(out, problems(e)...)
		}
		return out
	}
	return []string{err.Error()}
}
