package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/envelopeledger/internal/domain"
)

// LedgerBookUseCase loads ledger books, applies an operation and saves them.
type LedgerBookUseCase struct {
	books     BookRepository
	recon     *ReconciliationUseCase
	transfers *TransferUseCase
	calc      *LedgerCalculationUseCase
	logger    zerolog.Logger
}

// NewLedgerBookUseCase creates a new LedgerBookUseCase.
func NewLedgerBookUseCase(
	books BookRepository,
	recon *ReconciliationUseCase,
	transfers *TransferUseCase,
	calc *LedgerCalculationUseCase,
	logger zerolog.Logger,
) *LedgerBookUseCase {
	return &LedgerBookUseCase{
		books:     books,
		recon:     recon,
		transfers: transfers,
		calc:      calc,
		logger:    logger.With().Str("component", "ledger_book").Logger(),
	}
}

// CreateBookInput represents input for creating a ledger book.
type CreateBookInput struct {
	Name       string
	StorageKey string
}

// CreateBook creates an empty ledger book.
func (uc *LedgerBookUseCase) CreateBook(ctx context.Context, input CreateBookInput) (*domain.LedgerBook, error) {
	if err := domain.ValidateBookName(input.Name); err != nil {
		return nil, err
	}
	if err := domain.ValidateStorageKey(input.StorageKey); err != nil {
		return nil, err
	}

	book := domain.NewLedgerBook(input.Name, input.StorageKey)
	book.Modified = time.Now().UTC()
	if err := uc.books.Create(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// GetBook loads a ledger book.
func (uc *LedgerBookUseCase) GetBook(ctx context.Context, storageKey string) (*domain.LedgerBook, error) {
	return uc.books.Get(ctx, storageKey)
}

// ListBooks lists stored ledger books.
func (uc *LedgerBookUseCase) ListBooks(ctx context.Context) ([]BookSummary, error) {
	return uc.books.List(ctx)
}

// ValidateBook loads a ledger book and runs its structural validation.
func (uc *LedgerBookUseCase) ValidateBook(ctx context.Context, storageKey string) error {
	book, err := uc.books.Get(ctx, storageKey)
	if err != nil {
		return err
	}
	return book.Validate()
}

// AddBucketInput represents input for tracking a new ledger bucket.
type AddBucketInput struct {
	Kind     domain.BucketKind
	Category domain.BudgetCategory
	StoredIn domain.Account
}

// AddBucket starts tracking a bucket from the next reconciliation.
func (uc *LedgerBookUseCase) AddBucket(ctx context.Context, storageKey string, input AddBucketInput) (domain.LedgerBucket, error) {
	bucket, err := domain.NewLedgerBucket(input.Kind, input.Category, input.StoredIn)
	if err != nil {
		return domain.LedgerBucket{}, err
	}

	book, err := uc.books.Get(ctx, storageKey)
	if err != nil {
		return domain.LedgerBucket{}, err
	}

	added, ok := book.AddBucket(bucket)
	if !ok {
		existing, _ := book.Ledger(bucket.Category.Code)
		if !existing.Equal(bucket) {
			return domain.LedgerBucket{}, fmt.Errorf("%w: category %s is already tracked in %s, move the bucket instead",
				domain.ErrInvalidState, bucket.Category.Code, existing.StoredIn.Name)
		}
		return domain.LedgerBucket{}, fmt.Errorf("%w: bucket %s is already tracked", domain.ErrInvalidState, bucket)
	}
	book.Modified = time.Now().UTC()
	if err := uc.books.Save(ctx, book); err != nil {
		return domain.LedgerBucket{}, err
	}
	return added, nil
}

// MoveBucket stores a tracked category's funds in another account.
func (uc *LedgerBookUseCase) MoveBucket(ctx context.Context, storageKey, categoryCode string, account domain.Account) (domain.LedgerBucket, error) {
	book, err := uc.books.Get(ctx, storageKey)
	if err != nil {
		return domain.LedgerBucket{}, err
	}

	moved, err := book.MoveBucket(categoryCode, account)
	if err != nil {
		return domain.LedgerBucket{}, err
	}
	book.Modified = time.Now().UTC()
	if err := uc.books.Save(ctx, book); err != nil {
		return domain.LedgerBucket{}, err
	}
	return moved, nil
}

// TransferLedgers lists the buckets funds can be transferred between.
func (uc *LedgerBookUseCase) TransferLedgers(ctx context.Context, storageKey string) ([]domain.LedgerBucket, error) {
	book, err := uc.books.Get(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	return book.LedgersAvailableForTransfer(), nil
}

// Reconcile runs a month end reconciliation and saves the book.
func (uc *LedgerBookUseCase) Reconcile(ctx context.Context, storageKey string, input MonthEndReconciliationInput) (*domain.ReconciliationResult, error) {
	book, err := uc.books.Get(ctx, storageKey)
	if err != nil {
		return nil, err
	}

	input.Book = book
	result, err := uc.recon.MonthEndReconciliation(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := uc.books.Save(ctx, book); err != nil {
		return nil, fmt.Errorf("save reconciled book %s: %w", storageKey, err)
	}
	return result, nil
}

// TransferInput represents input for transferring funds between buckets.
type TransferInput struct {
	From      domain.BucketKey
	To        domain.BucketKey
	Amount    decimal.Decimal
	Narrative string
}

// Transfer posts a fund transfer onto the most recent reconciliation. Buckets
// resolve against that line's entries, so a bucket moved since the line was
// built is addressed by the account it was reconciled in. The line is unlocked
// for the edit and locked again before saving.
func (uc *LedgerBookUseCase) Transfer(ctx context.Context, storageKey string, input TransferInput) (*domain.LedgerEntryLine, error) {
	book, err := uc.books.Get(ctx, storageKey)
	if err != nil {
		return nil, err
	}

	recent, ok := book.MostRecent()
	if !ok {
		return nil, fmt.Errorf("%w: ledger book has no reconciliations", domain.ErrInvalidState)
	}
	candidates := recent.LedgersAvailableForTransfer()
	from, err := findBucket(candidates, input.From)
	if err != nil {
		return nil, err
	}
	to, err := findBucket(candidates, input.To)
	if err != nil {
		return nil, err
	}

	line, _ := book.UnlockMostRecent()
	defer line.Lock()

	cmd := &domain.TransferFundsCommand{
		From:      from,
		To:        to,
		Amount:    input.Amount,
		Narrative: input.Narrative,
	}
	if err := uc.transfers.TransferFunds(ctx, book, cmd, line); err != nil {
		return nil, err
	}

	line.Lock()
	if err := uc.books.Save(ctx, book); err != nil {
		return nil, err
	}
	return line, nil
}

// findBucket looks up a transferable bucket. A miss names the closest
// candidate when one is within suggestionDistance edits.
func findBucket(candidates []domain.LedgerBucket, key domain.BucketKey) (domain.LedgerBucket, error) {
	for _, b := range candidates {
		if b.Key() == key {
			return b, nil
		}
	}

	want := key.CategoryCode + "/" + key.Account
	best, bestDistance := "", suggestionDistance+1
	for _, b := range candidates {
		k := b.Key()
		name := k.CategoryCode + "/" + k.Account
		if d := levenshtein.ComputeDistance(strings.ToUpper(want), strings.ToUpper(name)); d < bestDistance {
			best, bestDistance = name, d
		}
	}
	if best != "" {
		return domain.LedgerBucket{}, fmt.Errorf("%w: bucket %s, did you mean %s?", domain.ErrEntryNotFound, want, best)
	}
	return domain.LedgerBucket{}, fmt.Errorf("%w: bucket %s", domain.ErrEntryNotFound, want)
}

// BalanceReport is the current period view of a ledger book.
type BalanceReport struct {
	Date      time.Time
	Balances  map[string]decimal.Decimal
	Surplus   decimal.Decimal
	Overspent []domain.ReportTransaction
}

// Balances reports the current period balances of the most recent
// reconciliation given the statement activity between begin and end.
func (uc *LedgerBookUseCase) Balances(ctx context.Context, storageKey string, statement *domain.Statement, begin, end time.Time) (*BalanceReport, error) {
	book, err := uc.books.Get(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	line, ok := book.MostRecent()
	if !ok {
		return nil, fmt.Errorf("%w: ledger book has no reconciliations", domain.ErrInvalidState)
	}

	balances, err := uc.calc.CurrentPeriodLedgerBalances(line, domain.DateRange{Begin: begin, End: end}, statement)
	if err != nil {
		return nil, err
	}

	overspent, err := uc.calc.OverspentLedgers(ctx, statement, line, begin, end)
	if err != nil {
		return nil, err
	}

	report := &BalanceReport{
		Date:      line.Date(),
		Balances:  balances,
		Surplus:   balances[domain.SurplusCode],
		Overspent: []domain.ReportTransaction{},
	}
	for r := range overspent {
		report.Overspent = append(report.Overspent, r)
	}
	return report, nil
}
