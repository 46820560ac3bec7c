package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/envelopeledger/internal/domain"
	"github.com/iho/envelopeledger/internal/infrastructure/metrics"
)

// TransferUseCase moves funds between ledger buckets on the most recent
// reconciliation.
type TransferUseCase struct {
	refs    IDGenerator
	rules   RuleService
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewTransferUseCase creates a new TransferUseCase.
func NewTransferUseCase(refs IDGenerator, rules RuleService, logger zerolog.Logger, m *metrics.Metrics) *TransferUseCase {
	return &TransferUseCase{
		refs:    refs,
		rules:   rules,
		logger:  logger.With().Str("component", "transfer").Logger(),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// TransferFunds posts cmd onto line, which must be the book's most recent
// reconciliation and editable.
func (uc *TransferUseCase) TransferFunds(ctx context.Context, book *domain.LedgerBook, cmd *domain.TransferFundsCommand, line *domain.LedgerEntryLine) error {
	if book == nil {
		return fmt.Errorf("%w: ledger book", domain.ErrMissingArgument)
	}
	if cmd == nil {
		return fmt.Errorf("%w: transfer command", domain.ErrMissingArgument)
	}
	if line == nil {
		return fmt.Errorf("%w: ledger entry line", domain.ErrMissingArgument)
	}

	if err := cmd.Validate(); err != nil {
		uc.recordError("invalid_command")
		return fmt.Errorf("%w: %w", domain.ErrInvalidState, err)
	}

	if recent, ok := book.MostRecent(); !ok || recent != line {
		uc.recordError("not_most_recent")
		return fmt.Errorf("%w: only the most recent reconciliation accepts transfers", domain.ErrInvalidState)
	}

	if cmd.BankTransferRequired() && cmd.AutoMatchingReference == "" {
		cmd.AutoMatchingReference = uc.refs.Generate()
	}

	if err := line.TransferFunds(cmd); err != nil {
		uc.recordError(errorType(err))
		return err
	}
	book.Modified = uc.now()

	logger := uc.logger.With().
		Str("book", book.StorageKey).
		Str("from", cmd.From.String()).
		Str("to", cmd.To.String()).
		Str("amount", cmd.Amount.String()).
		Logger()

	if cmd.BankTransferRequired() {
		uc.registerRule(ctx, logger, cmd)
	}

	if uc.metrics != nil {
		uc.metrics.TransfersCreated.Inc()
		uc.metrics.TransferAmount.Observe(cmd.Amount.InexactFloat64())
	}
	logger.Info().Bool("bank_transfer", cmd.BankTransferRequired()).Msg("funds transferred")
	return nil
}

func (uc *TransferUseCase) registerRule(ctx context.Context, logger zerolog.Logger, cmd *domain.TransferFundsCommand) {
	if uc.rules == nil {
		return
	}
	category := cmd.To.Category.Code
	if cmd.To.IsSurplus() {
		category = cmd.From.Category.Code
	}
	rule, err := domain.NewSingleUseTransferRule(domain.TransferTask{
		Reference:    cmd.AutoMatchingReference,
		Amount:       cmd.Amount,
		Source:       cmd.From.StoredIn,
		Destination:  cmd.To.StoredIn,
		CategoryCode: category,
	}, uc.now())
	if err != nil {
		logger.Error().Err(err).Msg("cannot build matching rule for transfer")
		return
	}
	if err := uc.rules.CreateSingleUseRule(ctx, rule); err != nil {
		logger.Error().Err(err).Str("reference", cmd.AutoMatchingReference).Msg("failed to create single use matching rule")
	}
}

func (uc *TransferUseCase) recordError(kind string) {
	if uc.metrics != nil {
		uc.metrics.TransferErrors.WithLabelValues(kind).Inc()
	}
}

// IsTransferError reports whether err was caused by an invalid transfer request.
func IsTransferError(err error) bool {
	return errors.Is(err, domain.ErrSameBucket) ||
		errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrAmountTooSmall) ||
		errors.Is(err, domain.ErrAmountTooLarge) ||
		errors.Is(err, domain.ErrAmountPrecision) ||
		errors.Is(err, domain.ErrMissingNarrative)
}
