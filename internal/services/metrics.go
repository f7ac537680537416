package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "niche_coordinator_operations_total",
		Help: "Coordinator operations by operation and outcome",
	}, []string{"operation", "outcome"})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "niche_notifications_total",
		Help: "Notification records by type and outcome",
	}, []string{"type", "outcome"})

	// partialFailuresTotal counts projection writes that failed after the
	// authoritative write was durable.
	partialFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "niche_partial_failures_total",
		Help: "Projection writes that failed after the authoritative write",
	}, []string{"operation"})

	feedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "niche_feed_subscribers",
		Help: "Live notification feeds currently open",
	})
)

func observe(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}
