package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Reconciliation metrics
	ReconciliationsCreated  prometheus.Counter
	ReconciliationDuration  prometheus.Histogram
	ReconciliationErrors    *prometheus.CounterVec
	ReconciliationTasks     *prometheus.CounterVec
	ValidationWarnings      *prometheus.CounterVec
	AutoMatches             *prometheus.CounterVec
	PolicyCompensations     *prometheus.CounterVec
	ConsistencyCheckFailure prometheus.Counter

	// Transfer metrics
	TransfersCreated prometheus.Counter
	TransferAmount   prometheus.Histogram
	TransferErrors   *prometheus.CounterVec

	// Report cache metrics
	ReportCacheHits   prometheus.Counter
	ReportCacheMisses prometheus.Counter

	// API metrics
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	HTTPInFlight   prometheus.Gauge
	RateLimitHits  *prometheus.CounterVec
	IdempotentHits prometheus.Counter

	// Storage metrics
	StorageOperations *prometheus.CounterVec
	StorageDuration   *prometheus.HistogramVec
	StorageErrors     *prometheus.CounterVec
	StorageRetries    *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates and registers all Prometheus metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Reconciliation metrics
		ReconciliationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "envelopeledger_reconciliations_created_total",
			Help: "Total number of month end reconciliations appended",
		}),
		ReconciliationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "envelopeledger_reconciliation_duration_seconds",
			Help:    "Duration of month end reconciliations",
			Buckets: prometheus.DefBuckets,
		}),
		ReconciliationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envelopeledger_reconciliation_errors_total",
				Help: "Total reconciliation failures by type",
			},
			[]string{"error_type"},
		),
		ReconciliationTasks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envelopeledger_reconciliation_tasks_total",
				Help: "Total to-do tasks raised by reconciliations",
			},
			[]string{"kind"},
		),
		ValidationWarnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envelopeledger_validation_warnings_total",
				Help: "Total validation warnings by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		AutoMatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envelopeledger_auto_matches_total",
				Help: "Total auto-matching reference resolutions",
			},
			[]string{"result"},
		),
		PolicyCompensations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envelopeledger_policy_compensations_total",
				Help: "Total compensating transactions appended by bucket policies",
			},
			[]string{"bucket_kind"},
		),
		ConsistencyCheckFailure: factory.NewCounter(prometheus.CounterOpts{
			Name: "envelopeledger_consistency_check_failures_total",
			Help: "Total historical surplus drifts detected",
		}),

		// Transfer metrics
		TransfersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "envelopeledger_transfers_created_total",
			Help: "Total number of fund transfers posted",
		}),
		TransferAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "envelopeledger_transfer_amount",
			Help:    "Fund transfer amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
		}),
		TransferErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envelopeledger_transfer_errors_total",
				Help: "Total number of transfer errors by type",
			},
			[]string{"error_type"},
		),

		// Report cache metrics
		ReportCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "envelopeledger_report_cache_hits_total",
			Help: "Total overspent ledger report cache hits",
		}),
		ReportCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "envelopeledger_report_cache_misses_total",
			Help: "Total overspent ledger report cache misses",
		}),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envelopeledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "envelopeledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "envelopeledger_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envelopeledger_rate_limit_hits_total",
				Help: "Total requests rejected by the rate limiter",
			},
			[]string{"path"},
		),
		IdempotentHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "envelopeledger_idempotent_replays_total",
			Help: "Total responses replayed for a repeated idempotency key",
		}),

		// Storage metrics
		StorageOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envelopeledger_storage_operations_total",
				Help: "Total ledger book storage operations",
			},
			[]string{"backend", "operation"},
		),
		StorageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "envelopeledger_storage_duration_seconds",
				Help:    "Ledger book storage operation duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "operation"},
		),
		StorageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envelopeledger_storage_errors_total",
				Help: "Total ledger book storage errors",
			},
			[]string{"backend", "operation"},
		),
		StorageRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envelopeledger_storage_retries_total",
				Help: "Ledger book writes retried after a transient conflict",
			},
			[]string{"backend", "reason"},
		),
	}
}

// ObserveStorage records one storage operation. A nil receiver is a no-op.
func (m *Metrics) ObserveStorage(backend, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.StorageOperations.WithLabelValues(backend, operation).Inc()
	m.StorageDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.StorageErrors.WithLabelValues(backend, operation).Inc()
	}
}
