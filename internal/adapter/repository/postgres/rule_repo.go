package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/envelopeledger/internal/domain"
	"github.com/iho/envelopeledger/internal/infrastructure/metrics"
	"github.com/iho/envelopeledger/internal/infrastructure/postgres/generated"
)

// RuleRepository implements usecase.RuleStore on the matching_rules table.
type RuleRepository struct {
	queries *generated.Queries
	metrics *metrics.Metrics
}

// NewRuleRepository creates a new RuleRepository.
func NewRuleRepository(pool *pgxpool.Pool, m *metrics.Metrics) *RuleRepository {
	return newRuleRepository(pool, m)
}

func newRuleRepository(db generated.DBTX, m *metrics.Metrics) *RuleRepository {
	return &RuleRepository{queries: generated.New(db), metrics: m}
}

// CreateSingleUseRule stores a rule.
func (r *RuleRepository) CreateSingleUseRule(ctx context.Context, rule *domain.MatchingRule) (err error) {
	defer func(start time.Time) { r.metrics.ObserveStorage(backend, "create_rule", start, err) }(time.Now())

	if rule == nil {
		return fmt.Errorf("%w: matching rule", domain.ErrMissingArgument)
	}

	var amount *string
	if rule.Amount != nil {
		s := rule.Amount.StringFixed(2)
		amount = &s
	}

	return r.queries.CreateMatchingRule(ctx, generated.CreateMatchingRuleParams{
		ID:              rule.ID,
		CategoryCode:    rule.CategoryCode,
		Description:     rule.Description,
		ReferenceTokens: rule.References,
		Amount:          amount,
		SingleUse:       rule.SingleUse,
		CreatedAt:       rule.CreatedAt,
	})
}

// List returns every stored rule, oldest first.
func (r *RuleRepository) List(ctx context.Context) (rules []*domain.MatchingRule, err error) {
	defer func(start time.Time) { r.metrics.ObserveStorage(backend, "list_rules", start, err) }(time.Now())

	rows, err := r.queries.ListMatchingRules(ctx)
	if err != nil {
		return nil, err
	}

	rules = make([]*domain.MatchingRule, 0, len(rows))
	for _, row := range rows {
		rule := &domain.MatchingRule{
			ID:           row.ID,
			CategoryCode: row.CategoryCode,
			Description:  row.Description,
			References:   row.ReferenceTokens,
			SingleUse:    row.SingleUse,
			CreatedAt:    row.CreatedAt,
		}
		if row.Amount != nil {
			amount, err := decimal.NewFromString(*row.Amount)
			if err != nil {
				return nil, fmt.Errorf("rule %s amount %q: %w", row.ID, *row.Amount, err)
			}
			rule.Amount = &amount
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
