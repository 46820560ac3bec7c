package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/envelopeledger/internal/domain"
	"github.com/iho/envelopeledger/internal/infrastructure/metrics"
)

// ReconciliationUseCase orchestrates month end reconciliations.
type ReconciliationUseCase struct {
	builder *ReconciliationBuilder
	rules   RuleService
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	builder *ReconciliationBuilder,
	rules RuleService,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		builder: builder,
		rules:   rules,
		logger:  logger.With().Str("component", "reconciliation").Logger(),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock used for budget activity and rule timestamps.
func (uc *ReconciliationUseCase) WithClock(now func() time.Time) *ReconciliationUseCase {
	uc.now = now
	return uc
}

// MonthEndReconciliationInput represents input for a month end reconciliation.
type MonthEndReconciliationInput struct {
	Book          *domain.LedgerBook
	Date          time.Time
	BudgetContext domain.BudgetContext
	Statement     *domain.Statement
	BankBalances  []domain.BankBalance
	// IgnoreWarnings logs every validation warning instead of failing.
	IgnoreWarnings bool
	// AcknowledgedWarnings bypasses warnings from sources already reviewed.
	AcknowledgedWarnings []domain.WarningSource
}

// MonthEndReconciliation validates the inputs, builds the next reconciliation
// and appends it to the book inside the consistency check.
func (uc *ReconciliationUseCase) MonthEndReconciliation(ctx context.Context, input MonthEndReconciliationInput) (*domain.ReconciliationResult, error) {
	start := time.Now()

	if input.Book == nil {
		return nil, fmt.Errorf("%w: ledger book", domain.ErrMissingArgument)
	}
	if input.Statement == nil {
		return nil, fmt.Errorf("%w: statement", domain.ErrMissingArgument)
	}

	logger := uc.logger.With().Str("book", input.Book.StorageKey).Time("date", input.Date).Logger()

	if !input.BudgetContext.IsActive(uc.now()) {
		uc.recordError("inactive_budget")
		return nil, fmt.Errorf("%w: budget is not currently active", domain.ErrInvalidState)
	}

	if err := uc.validate(logger, input); err != nil {
		uc.recordError(errorType(err))
		return nil, err
	}

	var result *domain.ReconciliationResult
	_, err := CheckConsistency(input.Book, func() (*domain.LedgerEntryLine, error) {
		built, err := uc.builder.CreateNewMonthlyReconciliation(ctx, BuildReconciliationInput{
			Book:         input.Book,
			Date:         input.Date,
			BankBalances: input.BankBalances,
			Budget:       input.BudgetContext.Model,
			Statement:    input.Statement,
		})
		if err != nil {
			return nil, err
		}
		if err := input.Book.Append(built); err != nil {
			return nil, err
		}
		result = built
		return built.Reconciliation, nil
	})
	if err != nil {
		var corrupted *domain.CorruptedLedgerBookError
		if errors.As(err, &corrupted) {
			logger.Error().Err(err).Msg("ledger book history changed during reconciliation")
			if uc.metrics != nil {
				uc.metrics.ConsistencyCheckFailure.Inc()
			}
		}
		uc.recordError(errorType(err))
		return nil, err
	}

	uc.registerTransferRules(ctx, logger, result)

	if uc.metrics != nil {
		uc.metrics.ReconciliationsCreated.Inc()
		uc.metrics.ReconciliationDuration.Observe(time.Since(start).Seconds())
		for _, t := range result.Tasks {
			kind := "todo"
			if t.IsTransfer() {
				kind = "transfer"
			}
			uc.metrics.ReconciliationTasks.WithLabelValues(kind).Inc()
		}
		uc.metrics.AutoMatches.WithLabelValues("matched").Add(float64(len(result.AutoMatches)))
	}

	logger.Info().
		Dur("duration", time.Since(start)).
		Int("entries", len(result.Reconciliation.Entries())).
		Int("tasks", len(result.Tasks)).
		Int("auto_matches", len(result.AutoMatches)).
		Str("surplus", result.Reconciliation.CalculatedSurplus().String()).
		Msg("month end reconciliation appended")

	return result, nil
}

// validate runs the pre-reconciliation checks. Hard failures are returned
// immediately; warnings are collected and then either logged or returned.
func (uc *ReconciliationUseCase) validate(logger zerolog.Logger, input MonthEndReconciliationInput) error {
	if err := input.Book.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidState, err)
	}

	var warnings []*domain.ValidationWarning
	previous, hasPrevious := input.Book.MostRecent()
	if hasPrevious {
		last := previous.Date()
		if !input.Date.After(last) {
			return fmt.Errorf("%w: reconciliation date %s must be after %s",
				domain.ErrInvalidState, input.Date.Format(time.DateOnly), last.Format(time.DateOnly))
		}
		if input.Date.Sub(last) < MinReconciliationSpacing {
			return fmt.Errorf("%w: reconciliation date %s is less than 4 weeks after %s",
				domain.ErrInvalidState, input.Date.Format(time.DateOnly), last.Format(time.DateOnly))
		}
		if input.Date.Day() != last.Day() {
			warnings = append(warnings, &domain.ValidationWarning{
				Source: domain.WarningDateSpacing,
				Message: fmt.Sprintf("reconciliation date %s is not on the same day of the month as %s",
					input.Date.Format(time.DateOnly), last.Format(time.DateOnly)),
			})
		}
	}

	start := PeriodStart(input.Book, input.Date)
	inPeriod := input.Statement.InRange(start, input.Date)

	uncategorised := 0
	for _, st := range inPeriod {
		if st.Category == nil {
			uncategorised++
		}
	}
	if uncategorised > 0 {
		warnings = append(warnings, &domain.ValidationWarning{
			Source: domain.WarningUncategorised,
			Message: fmt.Sprintf("%d statement transactions between %s and %s are not categorised",
				uncategorised, start.Format(time.DateOnly), input.Date.Format(time.DateOnly)),
		})
	}

	if hasPrevious {
		reported := make(map[string]bool)
		for _, entry := range previous.Entries() {
			for _, pending := range entry.PendingAutoMatches() {
				token := pending.AutoMatch.Token
				if reported[token] {
					continue
				}
				reported[token] = true
				found := slices.ContainsFunc(inPeriod, func(st domain.StatementTransaction) bool {
					return st.HasReference(token)
				})
				if !found {
					warnings = append(warnings, &domain.ValidationWarning{
						Source: domain.WarningOrphanedAutoMatch,
						Message: fmt.Sprintf("no statement transaction carries reference %s expected for %s",
							token, entry.Bucket().Category.Code),
					})
				}
			}
		}
	}

	for _, w := range warnings {
		if input.IgnoreWarnings || slices.Contains(input.AcknowledgedWarnings, w.Source) {
			logger.Warn().Str("source", string(w.Source)).Msg(w.Message)
			uc.recordWarning(w.Source, "ignored")
			continue
		}
		uc.recordWarning(w.Source, "rejected")
		return w
	}
	return nil
}

// registerTransferRules asks the rule service to recognise the bank transfers
// requested by the result. Failures are logged and do not fail the run.
func (uc *ReconciliationUseCase) registerTransferRules(ctx context.Context, logger zerolog.Logger, result *domain.ReconciliationResult) {
	if uc.rules == nil {
		return
	}
	for _, t := range result.TransferTasks() {
		if !t.SystemGenerated || t.Transfer.Reference == "" {
			continue
		}
		rule, err := domain.NewSingleUseTransferRule(*t.Transfer, uc.now())
		if err != nil {
			logger.Error().Err(err).Msg("cannot build matching rule for transfer task")
			continue
		}
		if err := uc.rules.CreateSingleUseRule(ctx, rule); err != nil {
			logger.Error().Err(err).Str("reference", t.Transfer.Reference).Msg("failed to create single use matching rule")
		}
	}
}

func (uc *ReconciliationUseCase) recordError(kind string) {
	if uc.metrics != nil {
		uc.metrics.ReconciliationErrors.WithLabelValues(kind).Inc()
	}
}

func (uc *ReconciliationUseCase) recordWarning(source domain.WarningSource, outcome string) {
	if uc.metrics != nil {
		uc.metrics.ValidationWarnings.WithLabelValues(string(source), outcome).Inc()
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidationWarning):
		return "validation_warning"
	case errors.Is(err, domain.ErrCorruptedLedgerBook):
		return "corrupted"
	case errors.Is(err, domain.ErrMissingArgument):
		return "missing_argument"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	default:
		return "internal"
	}
}
