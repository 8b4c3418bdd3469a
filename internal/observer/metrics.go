package observer

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	// Labels for inbound webhook event metrics
	webhookEventLabels = []string{"signal"}
	// Labels for tracking dispatch outcomes
	dispatchLabels = []string{"flow_step"}
	// Labels for outbound message sends
	sendLabels = []string{"kind", "status"}

	// Webhook event counters
	WebhookEventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpline_bot_webhook_events_received_total",
			Help: "Total number of inbound webhook events accepted, labeled by signal kind.",
		},
		webhookEventLabels,
	)
	WebhookEventsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpline_bot_webhook_events_processed_total",
			Help: "Total number of inbound events fully processed, labeled by signal kind.",
		},
		webhookEventLabels,
	)
	WebhookEventsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpline_bot_webhook_events_failed_total",
			Help: "Total number of inbound events whose processing failed, labeled by signal kind.",
		},
		webhookEventLabels,
	)

	// Histogram for inbound event processing duration
	EventProcessingDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helpline_bot_event_processing_duration_seconds",
			Help:    "Histogram of inbound event processing durations.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		webhookEventLabels,
	)

	// Counter for resolved dispatch actions
	DispatchActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpline_bot_dispatch_actions_total",
			Help: "Total count of dispatcher decisions, labeled by resolved flow step.",
		},
		dispatchLabels,
	)

	// Counter for outbound sends
	OutboundSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpline_bot_outbound_sends_total",
			Help: "Total number of outbound message sends, labeled by message kind and status.",
		},
		sendLabels,
	)
)

// Labels for database operations
var (
	dbOperationLabels = []string{"operation", "entity", "status"}

	// Histogram for Database Operation Duration
	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helpline_bot_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		dbOperationLabels,
	)
)

// Inbound worker pool metrics
var (
	workerStatusLabels = []string{"status"}

	workerTasksSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "helpline_bot_worker_tasks_submitted_total",
		Help: "Total number of inbound events submitted to the worker pool.",
	})
	workerTasksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpline_bot_worker_tasks_processed_total",
			Help: "Total number of inbound events processed by the worker pool, labeled by final status.",
		},
		workerStatusLabels,
	)
	workerQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "helpline_bot_worker_queue_length",
		Help: "Approximate number of events waiting in the worker pool queue.",
	})
)

// Aggregation metrics
var (
	aggregationLabels = []string{"query"}

	AggregationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helpline_bot_aggregation_duration_seconds",
			Help:    "Histogram of aggregation query durations.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		aggregationLabels,
	)
	dailyMetricRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpline_bot_daily_metric_runs_total",
			Help: "Total number of daily metric computations, labeled by final status.",
		},
		workerStatusLabels,
	)
)

// Event bus metrics
var (
	eventbusPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpline_bot_eventbus_published_total",
			Help: "Total number of analytics events published to the event bus, labeled by status.",
		},
		workerStatusLabels,
	)
)

// Load generator metrics, used only by cmd/tester
var (
	loadgenMessagesAttemptedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpline_bot_loadgen_messages_attempted_total",
			Help: "Total number of synthetic webhook messages attempted, labeled by signal kind.",
		},
		webhookEventLabels,
	)
	loadgenMessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpline_bot_loadgen_messages_sent_total",
			Help: "Total number of synthetic webhook messages delivered, labeled by signal kind.",
		},
		webhookEventLabels,
	)
	loadgenSendErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpline_bot_loadgen_send_errors_total",
			Help: "Total number of synthetic webhook delivery failures, labeled by signal kind.",
		},
		webhookEventLabels,
	)
)

// InitMetrics initializes metric collection. Call during application startup.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

// IncWebhookEventReceived increments the events received counter.
func IncWebhookEventReceived(signal string) {
	if !metricsEnabled {
		return
	}
	WebhookEventsReceivedTotal.WithLabelValues(signal).Inc()
}

// IncWebhookEventProcessed increments the events processed counter.
func IncWebhookEventProcessed(signal string) {
	if !metricsEnabled {
		return
	}
	WebhookEventsProcessedTotal.WithLabelValues(signal).Inc()
}

// IncWebhookEventFailed increments the events failed counter.
func IncWebhookEventFailed(signal string) {
	if !metricsEnabled {
		return
	}
	WebhookEventsFailedTotal.WithLabelValues(signal).Inc()
}

// ObserveEventProcessingDuration records the processing time for one inbound event.
func ObserveEventProcessingDuration(signal string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	EventProcessingDurationSeconds.WithLabelValues(signal).Observe(duration.Seconds())
}

// IncDispatchAction increments the dispatch decision counter.
func IncDispatchAction(flowStep string) {
	if !metricsEnabled {
		return
	}
	DispatchActionsTotal.WithLabelValues(flowStep).Inc()
}

// IncOutboundSend increments the outbound send counter.
func IncOutboundSend(kind string, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	OutboundSendsTotal.WithLabelValues(kind, status).Inc()
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, status).Observe(duration.Seconds())
}

// IncWorkerTasksSubmitted increments the counter for submitted worker tasks.
func IncWorkerTasksSubmitted() {
	if !metricsEnabled {
		return
	}
	workerTasksSubmittedTotal.Inc()
}

// IncWorkerTasksProcessed increments the counter for processed worker tasks by status.
func IncWorkerTasksProcessed(status string) {
	if !metricsEnabled {
		return
	}
	workerTasksProcessedTotal.WithLabelValues(status).Inc()
}

// SetWorkerQueueLength sets the current worker pool queue length.
func SetWorkerQueueLength(length int) {
	if !metricsEnabled {
		return
	}
	workerQueueLength.Set(float64(length))
}

// ObserveAggregationDuration records the duration of one aggregation query.
func ObserveAggregationDuration(query string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	AggregationDurationSeconds.WithLabelValues(query).Observe(duration.Seconds())
}

// IncDailyMetricRun increments the daily metric computation counter by status.
func IncDailyMetricRun(err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	dailyMetricRunsTotal.WithLabelValues(status).Inc()
}

// IncEventBusPublished increments the event bus publish counter by status.
func IncEventBusPublished(err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	eventbusPublishedTotal.WithLabelValues(status).Inc()
}

// IncLoadgenMessagesAttempted increments the load generator attempt counter.
func IncLoadgenMessagesAttempted(signal string) {
	if !metricsEnabled {
		return
	}
	loadgenMessagesAttemptedTotal.WithLabelValues(signal).Inc()
}

// IncLoadgenMessagesSent increments the load generator delivery counter.
func IncLoadgenMessagesSent(signal string) {
	if !metricsEnabled {
		return
	}
	loadgenMessagesSentTotal.WithLabelValues(signal).Inc()
}

// IncLoadgenSendErrors increments the load generator failure counter.
func IncLoadgenSendErrors(signal string) {
	if !metricsEnabled {
		return
	}
	loadgenSendErrorsTotal.WithLabelValues(signal).Inc()
}

// SanitizeErrorType maps specific errors to a coarse category for labels.
// Keep this simple to avoid high cardinality.
func SanitizeErrorType(errStr string) string {
	if errStr == "" || errStr == "none" {
		return "none"
	}

	switch {
	case strings.Contains(errStr, "database"), strings.Contains(errStr, "SQL"), strings.Contains(errStr, "duplicate key"), strings.Contains(errStr, "constraint"), strings.Contains(errStr, "connection"):
		return "database"
	case strings.Contains(errStr, "validation failed"), strings.Contains(errStr, "bad request"), strings.Contains(errStr, "invalid"), strings.Contains(errStr, "missing field"):
		return "validation"
	case strings.Contains(errStr, "not found"), strings.Contains(errStr, "no rows"):
		return "not_found"
	case strings.Contains(errStr, "nats"):
		return "nats"
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return "timeout"
	case strings.Contains(errStr, "unmarshal"), strings.Contains(errStr, "json"):
		return "unmarshal"
	case strings.Contains(errStr, "panic"):
		return "panic"
	default:
		return "unknown"
	}
}
