package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration продолжительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// RecordsSynthesized синтезированные записи по источнику (bulk или stream)
	RecordsSynthesized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "records_synthesized_total",
			Help: "Total number of synthesized records",
		},
		[]string{"source"},
	)

	// RecordsEvicted записи, вытесненные из истории при переполнении
	RecordsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "records_evicted_total",
			Help: "Total number of records evicted from the history window",
		},
	)

	// HistorySize текущий размер истории
	HistorySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "history_size",
			Help: "Current number of records in the history",
		},
	)

	// StreamingActive 1 если живой режим включен
	StreamingActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streaming_active",
			Help: "Whether the streaming mode is active (1) or idle (0)",
		},
	)

	// ResampleLatency задержка ресемплинга
	ResampleLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resample_latency_seconds",
			Help:    "Resampling latency in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)

	// ResampleBuckets количество непустых интервалов в последнем ресемплинге
	ResampleBuckets = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resample_output_buckets",
			Help:    "Number of non-empty buckets produced by resampling",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	// InvalidTimestamps записи, отброшенные из-за нераспознанной метки времени
	InvalidTimestamps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invalid_timestamps_total",
			Help: "Total number of records skipped because of an unparseable timestamp",
		},
		[]string{"operation"},
	)

	// StoreOperations операции с хранилищем снимков
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_store_operations_total",
			Help: "Total number of snapshot store operations",
		},
		[]string{"backend", "operation", "status"},
	)

	// PublishDuration длительность публикации снимка
	PublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapshot_publish_duration_seconds",
			Help:    "Snapshot publish duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
