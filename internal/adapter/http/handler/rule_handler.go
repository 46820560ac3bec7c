package handler

import (
	"context"
	"net/http"

	"github.com/iho/envelopeledger/internal/adapter/http/dto"
	"github.com/iho/envelopeledger/internal/domain"
)

// RuleLister lists registered matching rules.
type RuleLister interface {
	List(ctx context.Context) ([]*domain.MatchingRule, error)
}

// RuleHandler serves the matching rules registered by reconciliations and
// transfers.
type RuleHandler struct {
	rules RuleLister
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(rules RuleLister) *RuleHandler {
	return &RuleHandler{rules: rules}
}

// List lists matching rules.
func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.List(r.Context())
	if err != nil {
		writeDomainError(w, "failed to list matching rules", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RulesFromDomain(rules))
}
