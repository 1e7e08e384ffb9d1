// Package metrics exposes Prometheus collectors for report outcomes and
// tracker latency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Report outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeCommented = "commented"
	OutcomeSkipped   = "skipped"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
)

var (
	reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eussiror",
			Name:      "reports_total",
			Help:      "Total number of failure reports handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	trackerRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eussiror",
			Name:      "tracker_request_seconds",
			Help:      "Issue tracker request latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"operation"},
	)
)

// Register attaches eussiror collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		reportsTotal,
		trackerRequestSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveReport counts one report with the given outcome.
func ObserveReport(outcome string) {
	switch outcome {
	case OutcomeCreated, OutcomeCommented, OutcomeSkipped, OutcomeIgnored:
	default:
		outcome = OutcomeFailed
	}
	reportsTotal.WithLabelValues(outcome).Inc()
}

// ObserveTrackerRequest records the latency of one tracker call.
func ObserveTrackerRequest(operation string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	trackerRequestSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}
