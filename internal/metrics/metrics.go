package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Query path metrics
	QueriesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainpulse_queries_processed_total",
			Help: "Total number of data queries executed",
		},
		[]string{"method", "status"}, // success, validation_error, provider_error
	)

	// Upstream provider metrics
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainpulse_provider_requests_total",
			Help: "Total number of upstream provider requests",
		},
		[]string{"api", "endpoint", "status"}, // nodit/coingecko/ethrpc/bitquery
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chainpulse_provider_request_duration_seconds",
			Help:    "Duration of upstream provider requests",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"api", "endpoint"},
	)

	// Response cache metrics
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainpulse_cache_lookups_total",
			Help: "Total number of response cache lookups",
		},
		[]string{"backend", "result"}, // hit, miss, error
	)

	// Alert engine metrics
	AlertsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainpulse_alerts_evaluated_total",
			Help: "Total number of alert evaluations",
		},
		[]string{"type", "outcome"}, // triggered, no_trigger, cooldown, fetch_error
	)

	AlertPhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chainpulse_alert_phase_duration_seconds",
			Help:    "Duration of one alert-type evaluation phase",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"phase"},
	)

	TicksSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainpulse_scheduler_ticks_skipped_total",
			Help: "Total number of scheduler ticks skipped because the previous tick was still running",
		},
	)

	// Notification metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainpulse_notifications_sent_total",
			Help: "Total number of notification dispatches",
		},
		[]string{"channel", "status"},
	)

	// System health
	HealthChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainpulse_health_checks_total",
			Help: "Total number of health check requests",
		},
		[]string{"status"},
	)
)

// RecordQuery records a query-path execution
func RecordQuery(method string, err error) {
	QueriesProcessed.WithLabelValues(method, statusLabel(err)).Inc()
}

// RecordProviderRequest records upstream request metrics
func RecordProviderRequest(api, endpoint string, duration time.Duration, err error) {
	ProviderRequests.WithLabelValues(api, endpoint, statusLabel(err)).Inc()
	ProviderRequestDuration.WithLabelValues(api, endpoint).Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit/miss/error
func RecordCacheLookup(backend, result string) {
	CacheLookups.WithLabelValues(backend, result).Inc()
}

// RecordAlertEvaluation records the outcome of one alert evaluation
func RecordAlertEvaluation(alertType, outcome string) {
	AlertsEvaluated.WithLabelValues(alertType, outcome).Inc()
}

// RecordAlertPhase records the duration of one scheduler phase
func RecordAlertPhase(phase string, duration time.Duration) {
	AlertPhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordNotification records a notification dispatch attempt
func RecordNotification(channel string, err error) {
	NotificationsSent.WithLabelValues(channel, statusLabel(err)).Inc()
}

// RecordHealthCheck records health check status
func RecordHealthCheck(healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	HealthChecks.WithLabelValues(status).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
