// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	LogEventsReceived  *prometheus.CounterVec
	CandidatesDetected *prometheus.CounterVec
	CandidatesMatched  *prometheus.CounterVec
	DuplicatesDropped  prometheus.Counter
	StreamReconnects   *prometheus.CounterVec

	// Narrative metrics
	NarrativeKeywords      prometheus.Gauge
	NarrativeRefreshes     prometheus.Counter
	NarrativeRefreshErrors prometheus.Counter

	// Pipeline metrics
	PipelineOutcomes *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	TierRejections   *prometheus.CounterVec
	CompositeScores  prometheus.Histogram

	// Alert metrics
	AlertsSent       prometheus.Counter
	AlertsSuppressed *prometheus.CounterVec
	NotifyErrors     prometheus.Counter

	// External call metrics
	ExternalCallLatency *prometheus.HistogramVec
	RateLimitWaits      *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "polymarket_sniper"
	}

	return &Metrics{
		LogEventsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "log_events_received_total",
			Help:      "Total program-log notifications received by source",
		}, []string{"source"}),
		CandidatesDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "candidates_detected_total",
			Help:      "Total launch candidates decoded by source",
		}, []string{"source"}),
		CandidatesMatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "candidates_matched_total",
			Help:      "Total candidates passing the narrative filter by source",
		}, []string{"source"}),
		DuplicatesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "duplicates_dropped_total",
			Help:      "Total candidate events dropped by in-flight dedup",
		}),
		StreamReconnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "stream_reconnects_total",
			Help:      "Total stream reconnections by source",
		}, []string{"source"}),

		NarrativeKeywords: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "narrative",
			Name:      "active_keywords",
			Help:      "Number of keywords in the active narrative set",
		}),
		NarrativeRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "narrative",
			Name:      "refreshes_total",
			Help:      "Total successful narrative refreshes",
		}),
		NarrativeRefreshErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "narrative",
			Name:      "refresh_errors_total",
			Help:      "Total failed narrative refreshes",
		}),

		PipelineOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "outcomes_total",
			Help:      "Total pipeline terminal outcomes by kind",
		}, []string{"outcome"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		TierRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "tier_rejections_total",
			Help:      "Total rejections by tier and reason",
		}, []string{"tier", "reason"}),
		CompositeScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "composite_score",
			Help:      "Composite scores of candidates reaching the alert decision",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),

		AlertsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "sent_total",
			Help:      "Total alerts sent",
		}),
		AlertsSuppressed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "suppressed_total",
			Help:      "Total alerts suppressed by reason",
		}, []string{"reason"}),
		NotifyErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "notify_errors_total",
			Help:      "Total notification delivery failures",
		}),

		ExternalCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "external",
			Name:      "call_latency_seconds",
			Help:      "External collaborator call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
		RateLimitWaits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "external",
			Name:      "rate_limit_acquires_total",
			Help:      "Total rate limiter acquisitions by service",
		}, []string{"service"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordLogEvent increments the received log events counter for a source.
func RecordLogEvent(source string) {
	DefaultMetrics.LogEventsReceived.WithLabelValues(source).Inc()
}

// RecordCandidateDetected increments the detected candidates counter.
func RecordCandidateDetected(source string) {
	DefaultMetrics.CandidatesDetected.WithLabelValues(source).Inc()
}

// RecordCandidateMatched increments the narrative-matched counter.
func RecordCandidateMatched(source string) {
	DefaultMetrics.CandidatesMatched.WithLabelValues(source).Inc()
}

// RecordDuplicateDropped increments the in-flight dedup counter.
func RecordDuplicateDropped() {
	DefaultMetrics.DuplicatesDropped.Inc()
}

// RecordStreamReconnect increments the stream reconnect counter for a source.
func RecordStreamReconnect(source string) {
	DefaultMetrics.StreamReconnects.WithLabelValues(source).Inc()
}

// RecordNarrativeRefresh records a refresh result and the new keyword count.
func RecordNarrativeRefresh(keywords int, err error) {
	if err != nil {
		DefaultMetrics.NarrativeRefreshErrors.Inc()
		return
	}
	DefaultMetrics.NarrativeRefreshes.Inc()
	DefaultMetrics.NarrativeKeywords.Set(float64(keywords))
}

// RecordPipelineOutcome records one terminal pipeline outcome.
func RecordPipelineOutcome(outcome string, seconds float64) {
	DefaultMetrics.PipelineOutcomes.WithLabelValues(outcome).Inc()
	DefaultMetrics.PipelineDuration.Observe(seconds)
}

// RecordTierRejection records a rejection at a specific tier.
func RecordTierRejection(tier, reason string) {
	DefaultMetrics.TierRejections.WithLabelValues(tier, reason).Inc()
}

// RecordCompositeScore records a score reaching the alert decision.
func RecordCompositeScore(score float64) {
	DefaultMetrics.CompositeScores.Observe(score)
}

// RecordAlertSent increments the sent alerts counter.
func RecordAlertSent() {
	DefaultMetrics.AlertsSent.Inc()
}

// RecordAlertSuppressed increments the suppressed alerts counter.
func RecordAlertSuppressed(reason string) {
	DefaultMetrics.AlertsSuppressed.WithLabelValues(reason).Inc()
}

// RecordNotifyError increments the notify failure counter.
func RecordNotifyError() {
	DefaultMetrics.NotifyErrors.Inc()
}

// RecordExternalCall records the latency of one external collaborator call.
func RecordExternalCall(service string, seconds float64) {
	DefaultMetrics.ExternalCallLatency.WithLabelValues(service).Observe(seconds)
}

// RecordRateLimitAcquire increments the limiter acquisition counter.
func RecordRateLimitAcquire(service string) {
	DefaultMetrics.RateLimitWaits.WithLabelValues(service).Inc()
}
