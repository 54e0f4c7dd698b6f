package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for notification delivery
var (
	// notificationDispatchedTotal counts events handled by the dispatcher
	notificationDispatchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_dispatched_total",
			Help: "Total number of change events dispatched to subscribers",
		},
	)

	// notificationSentTotal tracks per-webhook delivery results
	notificationSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_sent_total",
			Help: "Total number of webhook deliveries",
		},
		[]string{"status"}, // status: success|rate_limited|client_error|server_error|transport_error|panic
	)

	// notificationDuration tracks delivery duration
	notificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notification_duration_seconds",
			Help:    "Webhook delivery duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
		},
	)

	// activeNotifications tracks in-flight deliveries
	activeNotifications = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_active_goroutines",
			Help: "Number of in-flight webhook deliveries",
		},
	)
)

// RecordDispatch records one handled event.
func RecordDispatch() {
	notificationDispatchedTotal.Inc()
}

// RecordDelivery records one webhook delivery attempt.
func RecordDelivery(status string, duration time.Duration) {
	notificationSentTotal.WithLabelValues(status).Inc()
	notificationDuration.Observe(duration.Seconds())
}

// IncrementActiveGoroutines increments the in-flight deliveries gauge by 1.
func IncrementActiveGoroutines() {
	activeNotifications.Inc()
}

// DecrementActiveGoroutines decrements the in-flight deliveries gauge by 1.
func DecrementActiveGoroutines() {
	activeNotifications.Dec()
}
