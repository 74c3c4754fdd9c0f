package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application metrics shared by the api and worker
// processes.
type Metrics struct {
	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram

	// Scheduling metrics
	AppointmentsCreated  prometheus.Counter
	AppointmentConflicts prometheus.Counter
	StatusTransitions    *prometheus.CounterVec

	// Notification metrics
	NotificationsPushed prometheus.Counter
	NotificationsFailed prometheus.Counter

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// New creates all application metrics and registers them with reg. Tests pass
// a fresh registry to avoid duplicate registration across cases.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OutboxEventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		AppointmentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_created_total",
			Help:      "Total number of appointments created",
		}),
		AppointmentConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_conflicts_total",
			Help:      "Total number of appointment creations rejected for slot conflicts",
		}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_transitions_total",
			Help:      "Total number of appointment status transitions",
		}, []string{"from", "to"}),
		NotificationsPushed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_pushed_total",
			Help:      "Total number of notifications pushed",
		}),
		NotificationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Total number of notification pushes that failed",
		}),
		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
