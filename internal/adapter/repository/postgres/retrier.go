package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/iho/envelopeledger/internal/infrastructure/metrics"
)

const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrUniqueViolation      = "23505"
)

// Retrier repeats a ledger book write when it lost a race with a concurrent
// writer of the same book.
type Retrier struct {
	maxRetries uint64
	newBackOff func() backoff.BackOff
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// RetrierOption configures a Retrier.
type RetrierOption func(*Retrier)

// WithMaxRetries caps the number of attempts after the first.
func WithMaxRetries(n uint64) RetrierOption {
	return func(r *Retrier) { r.maxRetries = n }
}

// WithBackOff replaces the default exponential schedule.
func WithBackOff(newBackOff func() backoff.BackOff) RetrierOption {
	return func(r *Retrier) { r.newBackOff = newBackOff }
}

// NewRetrier creates a Retrier with three retries on an exponential
// schedule starting at 50ms. m may be nil.
func NewRetrier(logger zerolog.Logger, m *metrics.Metrics, opts ...RetrierOption) *Retrier {
	r := &Retrier{
		maxRetries: 3,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxInterval = time.Second
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
		logger:  logger.With().Str("component", "pg_retrier").Logger(),
		metrics: m,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retry runs write for the book stored under storageKey. Deadlocks,
// serialization failures and connection errors raised before anything was
// sent are retried; every other error is returned as is.
func (r *Retrier) Retry(ctx context.Context, storageKey string, write func() error) error {
	attempt := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.maxRetries), ctx)

	return backoff.RetryNotify(func() error {
		attempt++
		err := write()
		if err == nil {
			return nil
		}
		if _, ok := retryReason(err); !ok {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		reason, _ := retryReason(err)
		if r.metrics != nil {
			r.metrics.StorageRetries.WithLabelValues(backend, reason).Inc()
		}
		r.logger.Warn().
			Err(err).
			Str("book", storageKey).
			Str("reason", reason).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("ledger book write conflicted, retrying")
	})
}

// retryReason names the transient condition behind err.
func retryReason(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrDeadlock:
			return "deadlock", true
		case pgErrSerializationFailure:
			return "serialization_failure", true
		}
		return "", false
	}
	if pgconn.SafeToRetry(err) {
		return "connection", true
	}
	return "", false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}
