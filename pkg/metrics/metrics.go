package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	MQDeadLetteredCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_dead_lettered_count",
			Help: "Messages moved to the dead letter exchange",
		},
		[]string{"routing_key", "reason"},
	)

	// AICallLatency covers remote generative model calls only.
	AICallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_call_latency_ms",
			Help:    "Generative model call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"operation", "status"},
	)

	AIFallbackCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_fallback_count",
			Help: "Analysis requests answered by the deterministic fallback",
		},
		[]string{"operation", "reason"}, // reason: unconfigured, error, invalid_response, circuit_open
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Queries slower than the configured threshold",
		},
	)

	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_slow_query_duration_seconds",
			Help:    "Duration of slow queries in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~12s
		},
	)

	EmailSentCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_sent_count",
			Help: "Total number of emails sent",
		},
		[]string{"status"}, // status: success, failed
	)

	AttachmentSkippedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attachment_skipped_count",
			Help: "Attachments dropped for being empty or over the size cap",
		},
	)

	WebsocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Open realtime push connections",
		},
	)
)

func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func IncrementDeadLettered(routingKey, reason string) {
	MQDeadLetteredCount.WithLabelValues(routingKey, reason).Inc()
}

func RecordAICallLatency(operation, status string, duration time.Duration) {
	AICallLatency.WithLabelValues(operation, status).Observe(float64(duration.Milliseconds()))
}

func IncrementAIFallback(operation, reason string) {
	AIFallbackCount.WithLabelValues(operation, reason).Inc()
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementSlowQuery(duration time.Duration) {
	SlowQueryCount.Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

func IncrementEmailSent(status string) {
	EmailSentCount.WithLabelValues(status).Inc()
}

func IncrementAttachmentSkipped() {
	AttachmentSkippedCount.Inc()
}
