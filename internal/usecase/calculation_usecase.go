package usecase

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/envelopeledger/internal/domain"
	"github.com/iho/envelopeledger/internal/infrastructure/metrics"
)

// LedgerCalculationUseCase derives read-only balance reports from a
// reconciliation and the statement activity that followed it.
type LedgerCalculationUseCase struct {
	cache   ReportCache
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewLedgerCalculationUseCase creates a new LedgerCalculationUseCase.
func NewLedgerCalculationUseCase(cache ReportCache, ttl time.Duration, logger zerolog.Logger, m *metrics.Metrics) *LedgerCalculationUseCase {
	if ttl <= 0 {
		ttl = DefaultReportCacheTTL
	}
	return &LedgerCalculationUseCase{
		cache:   cache,
		ttl:     ttl,
		logger:  logger.With().Str("component", "ledger_calculation").Logger(),
		metrics: m,
	}
}

// pendingReferences collects the tokens the line still expects to see in
// the statement. Statement transactions carrying them are already accounted for.
func pendingReferences(line *domain.LedgerEntryLine) []string {
	var refs []string
	for _, e := range line.Entries() {
		for _, t := range e.PendingAutoMatches() {
			refs = append(refs, t.AutoMatch.Token)
		}
	}
	return refs
}

func isAutoMatched(st domain.StatementTransaction, refs []string) bool {
	return slices.ContainsFunc(refs, st.HasReference)
}

// CurrentPeriodLedgerBalances returns each bucket's balance including the
// statement activity inside filter, keyed by category code. The surplus total
// is keyed by domain.SurplusCode and absorbs every negative bucket balance.
func (uc *LedgerCalculationUseCase) CurrentPeriodLedgerBalances(line *domain.LedgerEntryLine, filter domain.DateRange, statement *domain.Statement) (map[string]decimal.Decimal, error) {
	if line == nil {
		return nil, fmt.Errorf("%w: ledger entry line", domain.ErrMissingArgument)
	}
	if statement == nil {
		return nil, fmt.Errorf("%w: statement", domain.ErrMissingArgument)
	}

	refs := pendingReferences(line)
	activity := make(map[string]decimal.Decimal)
	for _, st := range statement.Transactions {
		if !filter.Contains(st.Date) || isAutoMatched(st, refs) {
			continue
		}
		code := st.CategoryCode()
		activity[code] = activity[code].Add(st.Amount)
	}

	balances := make(map[string]decimal.Decimal)
	overspend := decimal.Zero
	for _, e := range line.Entries() {
		code := e.Bucket().Category.Code
		balance := e.Balance().Add(activity[code])
		balances[code] = balance
		if balance.IsNegative() {
			overspend = overspend.Add(balance)
		}
	}

	balances[domain.SurplusCode] = line.CalculatedSurplus().
		Add(activity[domain.SurplusCode]).
		Add(overspend)
	return balances, nil
}

// CurrentPeriodSurplusBalance returns only the surplus total.
func (uc *LedgerCalculationUseCase) CurrentPeriodSurplusBalance(line *domain.LedgerEntryLine, filter domain.DateRange, statement *domain.Statement) (decimal.Decimal, error) {
	balances, err := uc.CurrentPeriodLedgerBalances(line, filter, statement)
	if err != nil {
		return decimal.Zero, err
	}
	return balances[domain.SurplusCode], nil
}

// OverspentLedgers reports, day by day from begin to end inclusive, each
// time a bucket becomes overdrawn, recovers, or changes its overdrawn amount.
// The sequence is lazy and may be ranged over repeatedly; complete results
// are cached for the configured TTL.
func (uc *LedgerCalculationUseCase) OverspentLedgers(ctx context.Context, statement *domain.Statement, line *domain.LedgerEntryLine, begin, end time.Time) (iter.Seq[domain.ReportTransaction], error) {
	if statement == nil {
		return nil, fmt.Errorf("%w: statement", domain.ErrMissingArgument)
	}
	if line == nil {
		return nil, fmt.Errorf("%w: ledger entry line", domain.ErrMissingArgument)
	}
	if end.Before(begin) {
		return nil, fmt.Errorf("%w: end %s is before begin %s",
			domain.ErrInvalidState, end.Format(time.DateOnly), begin.Format(time.DateOnly))
	}

	key := overspentCacheKey(statement, line, begin, end)
	return func(yield func(domain.ReportTransaction) bool) {
		if cached, ok := uc.cached(ctx, key); ok {
			for _, r := range cached {
				if !yield(r) {
					return
				}
			}
			return
		}

		var collected []domain.ReportTransaction
		for r := range walkOverspend(statement, line, begin, end) {
			collected = append(collected, r)
			if !yield(r) {
				return
			}
		}
		uc.store(ctx, key, collected)
	}, nil
}

func overspentCacheKey(statement *domain.Statement, line *domain.LedgerEntryLine, begin, end time.Time) string {
	return fmt.Sprintf("overspent|%s|%d|%s|%s|%s",
		statement.StorageKey,
		statement.LastImported.UnixNano(),
		line.Date().Format(time.DateOnly),
		begin.Format(time.DateOnly),
		end.Format(time.DateOnly))
}

func (uc *LedgerCalculationUseCase) cached(ctx context.Context, key string) ([]domain.ReportTransaction, bool) {
	if uc.cache == nil {
		return nil, false
	}
	value, ok, err := uc.cache.Get(ctx, key)
	if err != nil {
		uc.logger.Warn().Err(err).Str("key", key).Msg("report cache read failed")
		return nil, false
	}
	if uc.metrics != nil {
		if ok {
			uc.metrics.ReportCacheHits.Inc()
		} else {
			uc.metrics.ReportCacheMisses.Inc()
		}
	}
	return value, ok
}

func (uc *LedgerCalculationUseCase) store(ctx context.Context, key string, value []domain.ReportTransaction) {
	if uc.cache == nil {
		return
	}
	if value == nil {
		value = []domain.ReportTransaction{}
	}
	if err := uc.cache.Set(ctx, key, value, uc.ttl); err != nil {
		uc.logger.Warn().Err(err).Str("key", key).Msg("report cache write failed")
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// walkOverspend is the uncached report computation.
func walkOverspend(statement *domain.Statement, line *domain.LedgerEntryLine, begin, end time.Time) iter.Seq[domain.ReportTransaction] {
	return func(yield func(domain.ReportTransaction) bool) {
		refs := pendingReferences(line)
		begin, end := truncateDay(begin), truncateDay(end)

		var codes []string
		balances := make(map[string]decimal.Decimal)
		for _, e := range line.Entries() {
			code := e.Bucket().Category.Code
			codes = append(codes, code)
			balances[code] = e.Balance()
		}

		var txs []domain.StatementTransaction
		for _, st := range statement.Transactions {
			if _, tracked := balances[st.CategoryCode()]; !tracked || isAutoMatched(st, refs) {
				continue
			}
			if st.Date.Before(line.Date()) || truncateDay(st.Date).After(end) {
				continue
			}
			txs = append(txs, st)
		}
		slices.SortStableFunc(txs, func(a, b domain.StatementTransaction) int {
			return a.Date.Compare(b.Date)
		})

		i := 0
		for ; i < len(txs) && truncateDay(txs[i].Date).Before(begin); i++ {
			code := txs[i].CategoryCode()
			balances[code] = balances[code].Add(txs[i].Amount)
		}

		for day := begin; !day.After(end); day = day.AddDate(0, 0, 1) {
			previous := make(map[string]decimal.Decimal, len(balances))
			for code, b := range balances {
				previous[code] = b
			}

			for ; i < len(txs) && truncateDay(txs[i].Date).Equal(day); i++ {
				code := txs[i].CategoryCode()
				balances[code] = balances[code].Add(txs[i].Amount)
			}

			for _, code := range codes {
				before, after := previous[code], balances[code]
				var narrative string
				switch {
				case !before.IsNegative() && after.IsNegative():
					narrative = fmt.Sprintf("%s overdrawn", code)
				case before.IsNegative() && !after.IsNegative():
					narrative = fmt.Sprintf("%s no longer overdrawn", code)
				case before.IsNegative() && after.IsNegative() && !before.Equal(after):
					narrative = fmt.Sprintf("%s overdrawn amount changed", code)
				default:
					continue
				}
				if !yield(domain.ReportTransaction{Date: day, Amount: after, Narrative: narrative}) {
					return
				}
			}
		}
	}
}
