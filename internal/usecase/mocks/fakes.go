package mocks

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/iho/envelopeledger/internal/domain"
	"github.com/iho/envelopeledger/internal/usecase"
)

// InMemoryBookRepository is an in-memory BookRepository with overridable methods.
type InMemoryBookRepository struct {
	mu    sync.RWMutex
	books map[string]*domain.LedgerBook
	saves int

	GetFunc  func(ctx context.Context, storageKey string) (*domain.LedgerBook, error)
	SaveFunc func(ctx context.Context, book *domain.LedgerBook) error
}

func NewInMemoryBookRepository(books ...*domain.LedgerBook) *InMemoryBookRepository {
	r := &InMemoryBookRepository{books: make(map[string]*domain.LedgerBook)}
	for _, b := range books {
		r.books[b.StorageKey] = b
	}
	return r
}

func (r *InMemoryBookRepository) Get(ctx context.Context, storageKey string) (*domain.LedgerBook, error) {
	if r.GetFunc != nil {
		return r.GetFunc(ctx, storageKey)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.books[storageKey]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrBookNotFound, storageKey)
}

func (r *InMemoryBookRepository) Create(ctx context.Context, book *domain.LedgerBook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[book.StorageKey]; ok {
		return fmt.Errorf("%w: %s", domain.ErrBookExists, book.StorageKey)
	}
	r.books[book.StorageKey] = book
	return nil
}

func (r *InMemoryBookRepository) Save(ctx context.Context, book *domain.LedgerBook) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, book)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books[book.StorageKey] = book
	r.saves++
	return nil
}

func (r *InMemoryBookRepository) List(ctx context.Context) ([]usecase.BookSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]usecase.BookSummary, 0, len(r.books))
	for _, b := range r.books {
		out = append(out, usecase.BookSummary{StorageKey: b.StorageKey, Name: b.Name, Modified: b.Modified})
	}
	slices.SortFunc(out, func(a, b usecase.BookSummary) int { return strings.Compare(a.StorageKey, b.StorageKey) })
	return out, nil
}

// Saves reports how many times Save stored a book.
func (r *InMemoryBookRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

// SequenceIDGenerator issues predictable references: REF001, REF002, ...
type SequenceIDGenerator struct {
	mu      sync.Mutex
	Prefix  string
	counter int
}

func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	prefix := g.Prefix
	if prefix == "" {
		prefix = "REF"
	}
	return fmt.Sprintf("%s%03d", prefix, g.counter)
}

// RecordingRuleService keeps every rule it is asked to create.
type RecordingRuleService struct {
	mu    sync.Mutex
	Rules []*domain.MatchingRule
	Err   error
}

func (s *RecordingRuleService) CreateSingleUseRule(ctx context.Context, rule *domain.MatchingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Rules = append(s.Rules, rule)
	return nil
}

// List returns the recorded rules.
func (s *RecordingRuleService) List(ctx context.Context) ([]*domain.MatchingRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.Rules), nil
}
