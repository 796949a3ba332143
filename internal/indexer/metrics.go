package indexer

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "indexer"
)

// Metrics contains the metrics exposed by the indexer pipeline.
type Metrics struct {
	// Number of transactions processed.
	TransactionsProcessed metrics.Counter

	// Number of event batches produced by the classifier, by event type.
	EventsClassified metrics.Counter

	// Number of outputs dropped by a decoder, by record kind.
	OutputsSkipped metrics.Counter

	// Number of rows persisted, by record kind.
	RecordsStored metrics.Counter

	// Number of batches that yielded no rows, by record kind.
	EmptyBatches metrics.Counter

	// Number of side effects executed, by effect.
	EffectsExecuted metrics.Counter

	// Time spent in a handler, by event type.
	HandlerSeconds metrics.Histogram
}

// PrometheusMetrics returns Metrics built using the Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		TransactionsProcessed: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "transactions_processed",
			Help:      "Number of transactions processed.",
		}, labels).With(labelsAndValues...),
		EventsClassified: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "events_classified",
			Help:      "Number of event batches produced by the classifier.",
		}, append(labels, "event")).With(labelsAndValues...),
		OutputsSkipped: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "outputs_skipped",
			Help:      "Number of outputs that could not be decoded.",
		}, append(labels, "kind")).With(labelsAndValues...),
		RecordsStored: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "records_stored",
			Help:      "Number of rows handed to storage.",
		}, append(labels, "kind")).With(labelsAndValues...),
		EmptyBatches: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "empty_batches",
			Help:      "Number of event batches without a single decodable output.",
		}, append(labels, "kind")).With(labelsAndValues...),
		EffectsExecuted: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "effects_executed",
			Help:      "Number of downstream side effects executed.",
		}, append(labels, "effect")).With(labelsAndValues...),
		HandlerSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "handler_seconds",
			Help:      "Time spent handling an event batch.",
			Buckets:   stdprometheus.ExponentialBuckets(0.001, 4, 8),
		}, append(labels, "event")).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		TransactionsProcessed: discard.NewCounter(),
		EventsClassified:      discard.NewCounter(),
		OutputsSkipped:        discard.NewCounter(),
		RecordsStored:         discard.NewCounter(),
		EmptyBatches:          discard.NewCounter(),
		EffectsExecuted:       discard.NewCounter(),
		HandlerSeconds:        discard.NewHistogram(),
	}
}
