package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	linesRead = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logparsely",
			Subsystem: "ingest",
			Name:      "lines_total",
			Help:      "Number of lines read from source stdout streams.",
		}, []string{"table"},
	)
	linesUnparsable = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logparsely",
			Subsystem: "ingest",
			Name:      "unparsable_lines_total",
			Help:      "Number of lines routed to the raw fallback column.",
		}, []string{"table"},
	)
	rowsInserted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logparsely",
			Subsystem: "store",
			Name:      "rows_inserted_total",
			Help:      "Number of rows successfully inserted per capture table.",
		}, []string{"table"},
	)
	insertFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logparsely",
			Subsystem: "store",
			Name:      "insert_failures_total",
			Help:      "Number of inserts that exhausted their retry budget.",
		}, []string{"table"},
	)
	migratedColumns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logparsely",
			Subsystem: "store",
			Name:      "migrated_columns_total",
			Help:      "Number of columns added by schema evolution per capture table.",
		}, []string{"table"},
	)
	retryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logparsely",
			Subsystem: "store",
			Name:      "retry_attempts_total",
			Help:      "Number of failed write attempts that were retried.",
		}, []string{"op"},
	)
	activeSources = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "logparsely",
			Subsystem: "ingest",
			Name:      "active_sources",
			Help:      "Current number of supervised source processes.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{linesRead, linesUnparsable, rowsInserted, insertFailures, migratedColumns, retryAttempts, activeSources}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncLine(table string) {
	if regOK.Load() {
		linesRead.WithLabelValues(table).Inc()
	}
}

func IncUnparsable(table string) {
	if regOK.Load() {
		linesUnparsable.WithLabelValues(table).Inc()
	}
}

func IncInsert(table string) {
	if regOK.Load() {
		rowsInserted.WithLabelValues(table).Inc()
	}
}

func IncInsertFailure(table string) {
	if regOK.Load() {
		insertFailures.WithLabelValues(table).Inc()
	}
}

func AddMigratedColumns(table string, n int) {
	if regOK.Load() {
		migratedColumns.WithLabelValues(table).Add(float64(n))
	}
}

func IncRetry(op string) {
	if regOK.Load() {
		retryAttempts.WithLabelValues(op).Inc()
	}
}

func SourceStarted() {
	if regOK.Load() {
		activeSources.Inc()
	}
}

func SourceDone() {
	if regOK.Load() {
		activeSources.Dec()
	}
}
