package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/envelopeledger/internal/adapter/repository/document"
	"github.com/iho/envelopeledger/internal/domain"
	"github.com/iho/envelopeledger/internal/infrastructure/metrics"
	"github.com/iho/envelopeledger/internal/usecase"
)

// BookRepository implements usecase.BookRepository on SQLite.
type BookRepository struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

// NewBookRepository creates a new BookRepository.
func NewBookRepository(db *sql.DB, m *metrics.Metrics) *BookRepository {
	return &BookRepository{db: db, metrics: m}
}

func (r *BookRepository) observe(operation string, start time.Time, err *error) {
	r.metrics.ObserveStorage(backend, operation, start, *err)
}

// Get loads a book and verifies it against the checksum column.
func (r *BookRepository) Get(ctx context.Context, storageKey string) (book *domain.LedgerBook, err error) {
	defer r.observe("get", time.Now(), &err)

	var data, checksum string
	err = r.db.QueryRowContext(ctx,
		`SELECT document, checksum FROM ledger_books WHERE storage_key = ?`, storageKey).
		Scan(&data, &checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrBookNotFound, storageKey)
	}
	if err != nil {
		return nil, err
	}

	doc, err := document.Decode([]byte(data))
	if err != nil {
		return nil, err
	}
	if doc.Checksum, err = decimal.NewFromString(checksum); err != nil {
		return nil, fmt.Errorf("%w: checksum %q: %w", domain.ErrCorruptedLedgerBook, checksum, err)
	}
	return doc.ToDomain()
}

// Create inserts a new book.
func (r *BookRepository) Create(ctx context.Context, book *domain.LedgerBook) (err error) {
	defer r.observe("create", time.Now(), &err)

	data, checksum, err := document.Marshal(book)
	if err != nil {
		return err
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM ledger_books WHERE storage_key = ?`, book.StorageKey).Scan(&exists)
		if err != nil {
			return err
		}
		if exists > 0 {
			return fmt.Errorf("%w: %s", domain.ErrBookExists, book.StorageKey)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO ledger_books (storage_key, name, document, checksum, modified_at) VALUES (?, ?, ?, ?, ?)`,
			book.StorageKey, book.Name, string(data), checksum.StringFixed(2), book.Modified.UTC().Format(time.RFC3339Nano))
		return err
	})
}

// Save replaces an existing book.
func (r *BookRepository) Save(ctx context.Context, book *domain.LedgerBook) (err error) {
	defer r.observe("save", time.Now(), &err)

	data, checksum, err := document.Marshal(book)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE ledger_books SET name = ?, document = ?, checksum = ?, modified_at = ? WHERE storage_key = ?`,
		book.Name, string(data), checksum.StringFixed(2), book.Modified.UTC().Format(time.RFC3339Nano), book.StorageKey)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrBookNotFound, book.StorageKey)
	}
	return nil
}

// List returns every stored book ordered by storage key.
func (r *BookRepository) List(ctx context.Context) (summaries []usecase.BookSummary, err error) {
	defer r.observe("list", time.Now(), &err)

	rows, err := r.db.QueryContext(ctx,
		`SELECT storage_key, name, modified_at FROM ledger_books ORDER BY storage_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries = []usecase.BookSummary{}
	for rows.Next() {
		var s usecase.BookSummary
		var modified string
		if err := rows.Scan(&s.StorageKey, &s.Name, &modified); err != nil {
			return nil, err
		}
		if s.Modified, err = time.Parse(time.RFC3339Nano, modified); err != nil {
			return nil, fmt.Errorf("book %s modified_at %q: %w", s.StorageKey, modified, err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
