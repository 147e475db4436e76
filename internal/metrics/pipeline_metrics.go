package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
	"github.com/vladislavdragonenkov/orderworker/internal/enrichment"
	"github.com/vladislavdragonenkov/orderworker/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderworker/internal/refclient"
)

// PipelineMetrics records per-intent outcomes and latencies for the Order
// Pipeline, following the same registration pattern as other metrics in this
// codebase: one counter per
// terminal state plus duration histograms, all safely re-registered across
// repeated construction in tests.
type PipelineMetrics struct {
	outcomes          *prometheus.CounterVec
	pipelineDuration  prometheus.Histogram
	enrichmentLatency prometheus.Histogram
	circuitBreaker    *prometheus.GaugeVec
	inFlight          prometheus.Gauge
}

// NewPipelineMetrics registers against the default Prometheus registerer.
func NewPipelineMetrics() *PipelineMetrics {
	return newPipelineMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newPipelineMetricsWithRegisterer(registerer prometheus.Registerer) *PipelineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &PipelineMetrics{
		outcomes: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "order_worker_outcomes_total",
			Help: "Total number of order intents processed, by terminal outcome",
		}, []string{"outcome"}),
		pipelineDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "order_worker_pipeline_duration_seconds",
			Help:    "Duration of a full Process() call for one intent",
			Buckets: prometheus.DefBuckets,
		}),
		enrichmentLatency: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "order_worker_enrichment_duration_seconds",
			Help:    "Duration of the enrichment stage (customer + product fan-out)",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		circuitBreaker: registerGaugeVec(registerer, prometheus.GaugeOpts{
			Name: "order_worker_circuit_breaker_state",
			Help: "Circuit breaker state per reference client: 0=closed, 1=open, 2=half-open",
		}, []string{"client"}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "order_worker_intents_in_flight",
			Help: "Number of intents currently being processed by the pipeline",
		}),
	}
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGaugeVec(registerer prometheus.Registerer, opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	collector := prometheus.NewGaugeVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.GaugeVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOutcome increments the counter for outcome.
func (m *PipelineMetrics) RecordOutcome(outcome domain.Outcome) {
	m.outcomes.WithLabelValues(string(outcome)).Inc()
}

// RecordDuration observes the full Process() duration.
func (m *PipelineMetrics) RecordDuration(d time.Duration) {
	m.pipelineDuration.Observe(d.Seconds())
}

// RecordEnrichmentLatency observes the enrichment stage's duration.
func (m *PipelineMetrics) RecordEnrichmentLatency(d time.Duration) {
	m.enrichmentLatency.Observe(d.Seconds())
}

// SetCircuitBreakerState publishes a reference client's breaker state
// (0=closed, 1=open, 2=half-open).
func (m *PipelineMetrics) SetCircuitBreakerState(client string, state float64) {
	m.circuitBreaker.WithLabelValues(client).Set(state)
}

// IntentStarted/IntentFinished track in-flight concurrency across consumer
// goroutines.
func (m *PipelineMetrics) IntentStarted()  { m.inFlight.Inc() }
func (m *PipelineMetrics) IntentFinished() { m.inFlight.Dec() }

var _ interface {
	RecordOutcome(domain.Outcome)
	RecordDuration(time.Duration)
} = (*PipelineMetrics)(nil)

var _ refclient.Metrics = (*PipelineMetrics)(nil)
var _ enrichment.Metrics = (*PipelineMetrics)(nil)
var _ kafka.Metrics = (*PipelineMetrics)(nil)
