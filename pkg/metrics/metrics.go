package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Total number of webhook deliveries processed, by final outcome (count)",
		},
		[]string{"provider", "outcome"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stage_duration_ms",
			Help:    "Processing duration per router stage in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"stage", "status"},
	)

	ClassificationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classification_total",
			Help: "Total number of classification decisions (count)",
		},
		[]string{"provider", "category", "rule"},
	)

	EnrichmentLookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enrichment_lookup_duration_ms",
			Help:    "Registry lookup round-trip duration in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"outcome"},
	)

	EnrichmentCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_cache_total",
			Help: "Enrichment cache lookups by tier and result (count)",
		},
		[]string{"tier", "result"},
	)

	RegistryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_requests_total",
			Help: "Total number of requests to the resource registry (count)",
		},
		[]string{"status"},
	)

	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_total",
			Help: "Total number of dispatch submissions to the execution engine (count)",
		},
		[]string{"mode", "status"},
	)

	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_duration_ms",
			Help:    "Duration of engine submissions in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"mode"},
	)

	ConfigReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "config_reloads_total",
			Help: "Total number of configuration snapshot rebuilds (count)",
		},
		[]string{"status"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of startup probe retry attempts (count)",
		},
		[]string{"component", "operation"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"topic"},
	)
)

func RegisterRouterMetrics() {
	prometheus.MustRegister(WebhookEventsTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(ClassificationTotal)
	prometheus.MustRegister(ConfigReloadsTotal)
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func RegisterEnrichmentMetrics() {
	prometheus.MustRegister(EnrichmentLookupDuration)
	prometheus.MustRegister(EnrichmentCacheTotal)
	prometheus.MustRegister(RegistryRequestsTotal)
}

func RegisterDispatchMetrics() {
	prometheus.MustRegister(DispatchTotal)
	prometheus.MustRegister(DispatchDuration)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaMessageSizeBytes)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterRetryMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
}

func IncWebhookEvent(provider, outcome string) {
	WebhookEventsTotal.WithLabelValues(provider, outcome).Inc()
}

func ObserveStageDuration(stage, status string, duration time.Duration) {
	StageDuration.WithLabelValues(stage, status).Observe(float64(duration.Milliseconds()))
}

func IncClassification(provider, category, rule string) {
	ClassificationTotal.WithLabelValues(provider, category, rule).Inc()
}

func ObserveEnrichmentLookup(outcome string, duration time.Duration) {
	EnrichmentLookupDuration.WithLabelValues(outcome).Observe(float64(duration.Milliseconds()))
}

func IncEnrichmentCache(tier, result string) {
	EnrichmentCacheTotal.WithLabelValues(tier, result).Inc()
}

func IncRegistryRequest(status string) {
	RegistryRequestsTotal.WithLabelValues(status).Inc()
}

func IncDispatch(mode, status string) {
	DispatchTotal.WithLabelValues(mode, status).Inc()
}

func ObserveDispatchDuration(mode string, duration time.Duration) {
	DispatchDuration.WithLabelValues(mode).Observe(float64(duration.Milliseconds()))
}

func IncConfigReload(status string) {
	ConfigReloadsTotal.WithLabelValues(status).Inc()
}

func IncRetryAttempt(component, operation string) {
	RetryAttemptsTotal.WithLabelValues(component, operation).Inc()
}

func IncKafkaMessagesWritten(topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(topic).Inc()
}

func ObserveKafkaMessageSize(topic string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(topic).Observe(float64(sizeBytes))
}

func ObserveKafkaWriteDuration(topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(topic).Observe(float64(duration.Milliseconds()))
}
