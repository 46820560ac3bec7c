package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatchingRule auto-categorises imported statement transactions. Single-use
// rules are discarded after their first match.
type MatchingRule struct {
	ID           string
	CategoryCode string
	Description  *string
	References   []string
	Amount       *decimal.Decimal
	SingleUse    bool
	CreatedAt    time.Time
}

// NewSingleUseTransferRule builds the rule that recognises the bank transfer
// requested by a transfer task.
func NewSingleUseTransferRule(task TransferTask, now time.Time) (*MatchingRule, error) {
	if task.Reference == "" {
		return nil, fmt.Errorf("%w: transfer task has no reference", ErrMissingArgument)
	}
	if task.CategoryCode == "" {
		return nil, fmt.Errorf("%w: transfer task has no category", ErrMissingArgument)
	}
	amount := task.Amount
	return &MatchingRule{
		ID:           uuid.NewString(),
		CategoryCode: task.CategoryCode,
		References:   []string{task.Reference},
		Amount:       &amount,
		SingleUse:    true,
		CreatedAt:    now,
	}, nil
}
