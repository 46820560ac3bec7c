package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iho/envelopeledger/internal/adapter/repository/document"
	"github.com/iho/envelopeledger/internal/domain"
	"github.com/iho/envelopeledger/internal/infrastructure/metrics"
	"github.com/iho/envelopeledger/internal/usecase"
)

const (
	backend      = "redis"
	bookPrefix   = "ledgerbook:"
	bookIndexKey = "ledgerbooks"
	saveRetries  = 3
)

// BookStore implements usecase.BookRepository. Each book is one JSON string
// under ledgerbook:<key>; the set ledgerbooks indexes the stored keys.
type BookStore struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

// NewBookStore creates a new BookStore.
func NewBookStore(client *redis.Client, m *metrics.Metrics) *BookStore {
	return &BookStore{client: client, metrics: m}
}

func (s *BookStore) observe(operation string, start time.Time, err *error) {
	s.metrics.ObserveStorage(backend, operation, start, *err)
}

// Get loads and verifies a book.
func (s *BookStore) Get(ctx context.Context, storageKey string) (book *domain.LedgerBook, err error) {
	defer s.observe("get", time.Now(), &err)

	data, err := s.client.Get(ctx, bookPrefix+storageKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrBookNotFound, storageKey)
		}
		return nil, err
	}
	return document.Unmarshal(data)
}

// Create stores a new book, failing if the key is taken.
func (s *BookStore) Create(ctx context.Context, book *domain.LedgerBook) (err error) {
	defer s.observe("create", time.Now(), &err)

	data, _, err := document.Marshal(book)
	if err != nil {
		return err
	}

	created, err := s.client.SetNX(ctx, bookPrefix+book.StorageKey, data, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("%w: %s", domain.ErrBookExists, book.StorageKey)
	}
	return s.client.SAdd(ctx, bookIndexKey, book.StorageKey).Err()
}

// Save replaces an existing book. The write is an optimistic WATCH/MULTI
// transaction retried when another writer touches the key first.
func (s *BookStore) Save(ctx context.Context, book *domain.LedgerBook) (err error) {
	defer s.observe("save", time.Now(), &err)

	data, _, err := document.Marshal(book)
	if err != nil {
		return err
	}
	key := bookPrefix + book.StorageKey

	write := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("%w: %s", domain.ErrBookNotFound, book.StorageKey)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, bookIndexKey, book.StorageKey)
			return nil
		})
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(10*time.Millisecond), saveRetries), ctx)
	return backoff.Retry(func() error {
		err := s.client.Watch(ctx, write, key)
		if err == nil || errors.Is(err, redis.TxFailedErr) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

// List returns the indexed books ordered by storage key. Keys whose document
// has disappeared are skipped.
func (s *BookStore) List(ctx context.Context) (summaries []usecase.BookSummary, err error) {
	defer s.observe("list", time.Now(), &err)

	keys, err := s.client.SMembers(ctx, bookIndexKey).Result()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []usecase.BookSummary{}, nil
	}
	slices.Sort(keys)

	docKeys := make([]string, len(keys))
	for i, k := range keys {
		docKeys[i] = bookPrefix + k
	}
	values, err := s.client.MGet(ctx, docKeys...).Result()
	if err != nil {
		return nil, err
	}

	summaries = make([]usecase.BookSummary, 0, len(keys))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		doc, err := document.Decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("book %s: %w", keys[i], err)
		}
		summaries = append(summaries, usecase.BookSummary{
			StorageKey: keys[i],
			Name:       doc.Name,
			Modified:   doc.Modified,
		})
	}
	return summaries, nil
}
