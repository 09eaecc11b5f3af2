package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deal_messages_ingested_total",
			Help: "Total number of messages accepted at the ingestion boundary (count)",
		},
	)

	MessagesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deal_messages_processed_total",
			Help: "Total number of processing attempts by outcome (count)",
		},
		[]string{"status"},
	)

	ProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deal_processing_duration_ms",
			Help:    "End-to-end processing duration per attempt in milliseconds",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"status"},
	)

	ExtractionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deal_extraction_duration_ms",
			Help:    "Language-model extraction call duration in milliseconds",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
	)

	PublishDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deal_publish_duration_ms",
			Help:    "Workspace publish call duration in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000},
		},
	)

	DeadLetteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deal_dead_lettered_total",
			Help: "Total number of messages moved to the dead-letter list (count)",
		},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "deal_queue_depth",
			Help: "Current depth of each queue collection (count)",
		},
		[]string{"collection"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limit_requests_total",
			Help: "HTTP requests by rate-limit decision (count)",
		},
		[]string{"decision"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

func RegisterPipelineMetrics() {
	prometheus.MustRegister(
		MessagesIngestedTotal,
		MessagesProcessedTotal,
		ProcessingDuration,
		ExtractionDuration,
		PublishDuration,
		DeadLetteredTotal,
		QueueDepth,
	)
}

func RegisterHTTPMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
}

func ObserveProcessing(status string, start time.Time) {
	MessagesProcessedTotal.WithLabelValues(status).Inc()
	ProcessingDuration.WithLabelValues(status).Observe(float64(time.Since(start).Milliseconds()))
}

func SetQueueDepth(main, inFlight, deadLetter, retry int64) {
	QueueDepth.WithLabelValues("main").Set(float64(main))
	QueueDepth.WithLabelValues("in_flight").Set(float64(inFlight))
	QueueDepth.WithLabelValues("dead_letter").Set(float64(deadLetter))
	QueueDepth.WithLabelValues("retry").Set(float64(retry))
}
