package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/iho/envelopeledger/internal/domain"
	"github.com/iho/envelopeledger/internal/infrastructure/metrics"
)

const rulesKey = "matchingrules"

type storedRule struct {
	ID           string           `json:"id"`
	CategoryCode string           `json:"category_code"`
	Description  *string          `json:"description,omitempty"`
	References   []string         `json:"references"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	SingleUse    bool             `json:"single_use"`
	CreatedAt    time.Time        `json:"created_at"`
}

// RuleStore implements usecase.RuleStore as a redis list of JSON rules.
type RuleStore struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

// NewRuleStore creates a new RuleStore.
func NewRuleStore(client *redis.Client, m *metrics.Metrics) *RuleStore {
	return &RuleStore{client: client, metrics: m}
}

// CreateSingleUseRule appends a rule to the list.
func (s *RuleStore) CreateSingleUseRule(ctx context.Context, rule *domain.MatchingRule) (err error) {
	defer func(start time.Time) { s.metrics.ObserveStorage(backend, "create_rule", start, err) }(time.Now())

	if rule == nil {
		return fmt.Errorf("%w: matching rule", domain.ErrMissingArgument)
	}
	data, err := json.Marshal(storedRule{
		ID:           rule.ID,
		CategoryCode: rule.CategoryCode,
		Description:  rule.Description,
		References:   rule.References,
		Amount:       rule.Amount,
		SingleUse:    rule.SingleUse,
		CreatedAt:    rule.CreatedAt,
	})
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, rulesKey, data).Err()
}

// List returns every stored rule in insertion order.
func (s *RuleStore) List(ctx context.Context) (rules []*domain.MatchingRule, err error) {
	defer func(start time.Time) { s.metrics.ObserveStorage(backend, "list_rules", start, err) }(time.Now())

	values, err := s.client.LRange(ctx, rulesKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	rules = make([]*domain.MatchingRule, 0, len(values))
	for _, v := range values {
		var r storedRule
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("decode matching rule: %w", err)
		}
		rules = append(rules, &domain.MatchingRule{
			ID:           r.ID,
			CategoryCode: r.CategoryCode,
			Description:  r.Description,
			References:   r.References,
			Amount:       r.Amount,
			SingleUse:    r.SingleUse,
			CreatedAt:    r.CreatedAt,
		})
	}
	return rules, nil
}
