package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code", "user_role"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// Queue business metrics
	queueOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_operations_total",
			Help: "Total number of waiting queue operations",
		},
		[]string{"operation", "result"},
	)

	queueOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_operation_duration_seconds",
			Help:    "Waiting queue operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	queueSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_size",
			Help: "Current number of waiting teams per restaurant",
		},
		[]string{"restaurant_id"},
	)

	queuePartySize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "queue_party_size",
			Help:    "Number of people per joined party",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 20, 50, 100},
		},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	// Redis metrics
	redisOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total number of Redis operations",
		},
		[]string{"operation", "status"},
	)

	// Notification metrics
	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of near-front notifications",
		},
		[]string{"driver", "status"},
	)

	notificationOutboxSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_outbox_size",
			Help: "Number of notifications waiting in the outbox",
		},
	)

	// Authentication metrics
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "status"},
	)

	systemErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "system_errors_total",
			Help: "Total number of system errors",
		},
		[]string{"error_type", "component"},
	)
)

// Collectors returns every custom collector so a private registry can expose them.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDuration,
		queueOperationsTotal,
		queueOperationDuration,
		queueSize,
		queuePartySize,
		dbQueryDuration,
		redisOperationsTotal,
		notificationsTotal,
		notificationOutboxSize,
		authAttemptsTotal,
		systemErrorsTotal,
	}
}

// HTTP Metrics
func RecordHTTPRequest(method, endpoint, statusCode, userRole string, duration float64) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode, userRole).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, statusCode).Observe(duration)
}

// Queue Metrics
func RecordQueueOperation(operation, result string, duration float64) {
	queueOperationsTotal.WithLabelValues(operation, result).Inc()
	queueOperationDuration.WithLabelValues(operation).Observe(duration)
}

func SetQueueSize(restaurantID string, size float64) {
	queueSize.WithLabelValues(restaurantID).Set(size)
}

func ObservePartySize(n int) {
	queuePartySize.Observe(float64(n))
}

// Database Metrics
func RecordDBQuery(operation, table string, duration float64) {
	dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// Redis Metrics
func RecordRedisOperation(operation, status string) {
	redisOperationsTotal.WithLabelValues(operation, status).Inc()
}

// Notification Metrics
func RecordNotification(driver, status string) {
	notificationsTotal.WithLabelValues(driver, status).Inc()
}

func SetNotificationOutboxSize(size float64) {
	notificationOutboxSize.Set(size)
}

// Authentication Metrics
func RecordAuthAttempt(method, status string) {
	authAttemptsTotal.WithLabelValues(method, status).Inc()
}

func RecordSystemError(errorType, component string) {
	systemErrorsTotal.WithLabelValues(errorType, component).Inc()
}
