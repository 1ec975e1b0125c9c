package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 邮件处理计数
	EmailsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_processed_total",
			Help: "Total number of emails processed by the pipeline",
		},
		[]string{"account", "status"}, // status: new, duplicate, invalid, failed
	)

	// 草稿生成计数
	DraftsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drafts_generated_total",
			Help: "Total number of drafts generated",
		},
		[]string{"model", "status"}, // status: success, failed
	)

	// 限流拒绝计数
	RateLimitRefusals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_refusals_total",
			Help: "Total number of generation calls refused by the rate limiter",
		},
		[]string{"reason"},
	)

	// 生成服务调用延迟（毫秒）
	GenerationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_call_latency_ms",
			Help:    "Generation backend call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"model", "status"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	// 生成服务 token 用量
	GenerationTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_tokens_total",
			Help: "Total tokens consumed by the generation backend",
		},
		[]string{"model", "kind"}, // kind: prompt, completion
	)
)

// RecordGenerationLatency 记录生成服务调用延迟
func RecordGenerationLatency(model, status string, duration time.Duration) {
	GenerationLatency.WithLabelValues(model, status).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementEmailProcessed 增加邮件处理计数
func IncrementEmailProcessed(account, status string) {
	EmailsProcessed.WithLabelValues(account, status).Inc()
}

// IncrementDraftGenerated 增加草稿生成计数
func IncrementDraftGenerated(model, status string) {
	DraftsGenerated.WithLabelValues(model, status).Inc()
}

// IncrementRateLimitRefusal 增加限流拒绝计数
func IncrementRateLimitRefusal(reason string) {
	RateLimitRefusals.WithLabelValues(reason).Inc()
}

// AddGenerationTokens 记录 token 用量
func AddGenerationTokens(model string, promptTokens, completionTokens int) {
	GenerationTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	GenerationTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
}
