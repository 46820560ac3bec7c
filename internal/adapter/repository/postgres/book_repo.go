package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/envelopeledger/internal/adapter/repository/document"
	"github.com/iho/envelopeledger/internal/domain"
	"github.com/iho/envelopeledger/internal/infrastructure/metrics"
	"github.com/iho/envelopeledger/internal/infrastructure/postgres/generated"
	"github.com/iho/envelopeledger/internal/usecase"
)

const backend = "postgres"

// BookRepository implements usecase.BookRepository. Each book is stored as
// one JSONB document with its checksum kept in a separate column.
type BookRepository struct {
	queries *generated.Queries
	tx      *TxManager
	retrier *Retrier
	metrics *metrics.Metrics
}

// NewBookRepository creates a new BookRepository.
func NewBookRepository(pool *pgxpool.Pool, retrier *Retrier, m *metrics.Metrics) *BookRepository {
	return newBookRepository(pool, retrier, m)
}

func newBookRepository(pool pgxPool, retrier *Retrier, m *metrics.Metrics) *BookRepository {
	return &BookRepository{
		queries: generated.New(pool),
		tx:      newTxManagerWithPool(pool),
		retrier: retrier,
		metrics: m,
	}
}

func (r *BookRepository) observe(operation string, start time.Time, err *error) {
	r.metrics.ObserveStorage(backend, operation, start, *err)
}

// Get loads a book and verifies it against the stored checksum.
func (r *BookRepository) Get(ctx context.Context, storageKey string) (book *domain.LedgerBook, err error) {
	defer r.observe("get", time.Now(), &err)

	row, err := r.queries.GetLedgerBook(ctx, storageKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrBookNotFound, storageKey)
		}
		return nil, err
	}

	doc, err := document.Decode(row.Document)
	if err != nil {
		return nil, err
	}
	checksum, err := decimal.NewFromString(row.Checksum)
	if err != nil {
		return nil, fmt.Errorf("%w: checksum %q: %w", domain.ErrCorruptedLedgerBook, row.Checksum, err)
	}
	doc.Checksum = checksum
	return doc.ToDomain()
}

// Create inserts a new book.
func (r *BookRepository) Create(ctx context.Context, book *domain.LedgerBook) (err error) {
	defer r.observe("create", time.Now(), &err)

	data, checksum, err := document.Marshal(book)
	if err != nil {
		return err
	}

	err = r.queries.CreateLedgerBook(ctx, generated.CreateLedgerBookParams{
		StorageKey: book.StorageKey,
		Name:       book.Name,
		Document:   data,
		Checksum:   checksum.StringFixed(2),
		ModifiedAt: book.Modified,
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrBookExists, book.StorageKey)
	}
	return err
}

// Save replaces a stored book. The row is locked for the duration of the
// write and serialization failures are retried.
func (r *BookRepository) Save(ctx context.Context, book *domain.LedgerBook) (err error) {
	defer r.observe("save", time.Now(), &err)

	data, checksum, err := document.Marshal(book)
	if err != nil {
		return err
	}

	return r.retrier.Retry(ctx, book.StorageKey, func() error {
		return r.tx.InTx(ctx, func(q *generated.Queries) error {
			if _, err := q.LockLedgerBook(ctx, book.StorageKey); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return fmt.Errorf("%w: %s", domain.ErrBookNotFound, book.StorageKey)
				}
				return err
			}

			_, err := q.UpdateLedgerBook(ctx, generated.UpdateLedgerBookParams{
				StorageKey: book.StorageKey,
				Name:       book.Name,
				Document:   data,
				Checksum:   checksum.StringFixed(2),
				ModifiedAt: book.Modified,
			})
			return err
		})
	})
}

// List returns every stored book ordered by storage key.
func (r *BookRepository) List(ctx context.Context) (summaries []usecase.BookSummary, err error) {
	defer r.observe("list", time.Now(), &err)

	rows, err := r.queries.ListLedgerBooks(ctx)
	if err != nil {
		return nil, err
	}

	summaries = make([]usecase.BookSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, usecase.BookSummary{
			StorageKey: row.StorageKey,
			Name:       row.Name,
			Modified:   row.ModifiedAt,
		})
	}
	return summaries, nil
}
