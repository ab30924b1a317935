package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InvocationsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logbridge_invocations_enqueued_total",
		Help: "Total number of invocations placed on the processing queue.",
	})

	InvocationsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logbridge_invocations_rejected_total",
		Help: "Total number of invocations rejected due to a full queue.",
	})

	Invocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logbridge_invocations_total",
		Help: "Total number of completed invocations, labelled by outcome.",
	}, []string{"outcome"})

	Records = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logbridge_records_total",
		Help: "Total number of output records, labelled by status.",
	}, []string{"status"})

	RecordsReingested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logbridge_records_reingested_total",
		Help: "Total number of records evicted from a response and re-ingested.",
	})

	ReingestAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logbridge_reingest_attempts_total",
		Help: "Total number of PutRecordBatch attempts, labelled by what followed them.",
	}, []string{"outcome"})

	InvocationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "logbridge_invocation_duration_ms",
		Help:    "End-to-end invocation latency in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 15000},
	})

	ProjectedBatchBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "logbridge_projected_batch_bytes",
		Help:    "Projected response size before eviction.",
		Buckets: prometheus.ExponentialBuckets(64*1024, 2, 8),
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "logbridge_queue_utilization_ratio",
		Help: "Current invocation queue utilization (0–1).",
	})
)
