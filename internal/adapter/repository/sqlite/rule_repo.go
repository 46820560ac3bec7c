package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iho/envelopeledger/internal/domain"
	"github.com/iho/envelopeledger/internal/infrastructure/metrics"
)

// RuleRepository implements usecase.RuleStore on SQLite. The rule body is
// kept as JSON next to the indexed columns.
type RuleRepository struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

// NewRuleRepository creates a new RuleRepository.
func NewRuleRepository(db *sql.DB, m *metrics.Metrics) *RuleRepository {
	return &RuleRepository{db: db, metrics: m}
}

// CreateSingleUseRule stores a rule.
func (r *RuleRepository) CreateSingleUseRule(ctx context.Context, rule *domain.MatchingRule) (err error) {
	defer func(start time.Time) { r.metrics.ObserveStorage(backend, "create_rule", start, err) }(time.Now())

	if rule == nil {
		return fmt.Errorf("%w: matching rule", domain.ErrMissingArgument)
	}
	body, err := json.Marshal(rule)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO matching_rules (id, category_code, rule_json, created_at) VALUES (?, ?, ?, ?)`,
		rule.ID, rule.CategoryCode, string(body), rule.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// List returns every stored rule, oldest first.
func (r *RuleRepository) List(ctx context.Context) (rules []*domain.MatchingRule, err error) {
	defer func(start time.Time) { r.metrics.ObserveStorage(backend, "list_rules", start, err) }(time.Now())

	rows, err := r.db.QueryContext(ctx, `SELECT rule_json FROM matching_rules ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules = []*domain.MatchingRule{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var rule domain.MatchingRule
		if err := json.Unmarshal([]byte(body), &rule); err != nil {
			return nil, fmt.Errorf("decode matching rule: %w", err)
		}
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}
