package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce      sync.Once
	requestsTotal     *prometheus.CounterVec
	latencySeconds    *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	pointsMutations   *prometheus.CounterVec
	remindersSent     prometheus.Counter
	purchasesTotal    prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors for the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classpoint_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "classpoint_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classpoint_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		pointsMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classpoint_points_mutations_total",
			Help: "Total number of balance-moving operations by kind.",
		}, []string{"kind"})

		remindersSent = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "classpoint_reminders_sent_total",
			Help: "Total number of deadline reminder emails sent.",
		})

		purchasesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "classpoint_purchases_total",
			Help: "Total number of completed shop purchases.",
		})

		prometheus.MustRegister(requestsTotal, latencySeconds, errorsTotal,
			pointsMutations, remindersSent, purchasesTotal)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// Errors exposes the counter for API error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return errorsTotal
}

// PointsMutations exposes the counter for balance-moving operations.
func PointsMutations() *prometheus.CounterVec {
	RegisterMetrics()
	return pointsMutations
}

// RemindersSent exposes the counter for reminder deliveries.
func RemindersSent() prometheus.Counter {
	RegisterMetrics()
	return remindersSent
}

// Purchases exposes the counter for completed purchases.
func Purchases() prometheus.Counter {
	RegisterMetrics()
	return purchasesTotal
}
