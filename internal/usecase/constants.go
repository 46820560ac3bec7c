package usecase

import "time"

const (
	// MinReconciliationSpacing is the shortest allowed gap between reconciliations.
	MinReconciliationSpacing = 4 * 7 * 24 * time.Hour

	// DefaultReportCacheTTL is how long overspent ledger reports are reused.
	DefaultReportCacheTTL = 2 * time.Minute

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// suggestionDistance is the edit distance within which an unknown
	// bucket gets a "did you mean" hint.
	suggestionDistance = 3
)
