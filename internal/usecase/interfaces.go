package usecase

import (
	"context"
	"time"

	"github.com/iho/envelopeledger/internal/domain"
)

// BookSummary is the listing view of a stored ledger book.
type BookSummary struct {
	StorageKey string
	Name       string
	Modified   time.Time
}

// BookRepository defines persistence for ledger books.
type BookRepository interface {
	Get(ctx context.Context, storageKey string) (*domain.LedgerBook, error)
	Create(ctx context.Context, book *domain.LedgerBook) error
	Save(ctx context.Context, book *domain.LedgerBook) error
	List(ctx context.Context) ([]BookSummary, error)
}

// RuleService registers transaction matching rules for the statement importer.
type RuleService interface {
	CreateSingleUseRule(ctx context.Context, rule *domain.MatchingRule) error
}

// RuleStore is a RuleService that can also list what it holds.
type RuleStore interface {
	RuleService
	List(ctx context.Context) ([]*domain.MatchingRule, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// ReportCache stores computed report sequences for a short time.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]domain.ReportTransaction, bool, error)
	Set(ctx context.Context, key string, value []domain.ReportTransaction, ttl time.Duration) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claim so the request can be retried.
	Release(ctx context.Context, key string) error
}
