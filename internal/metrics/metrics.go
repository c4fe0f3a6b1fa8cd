// Package metrics holds the Prometheus collectors for the placement workflow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Placement counts and times placement workflow operations.
// A nil *Placement is valid and records nothing.
type Placement struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewPlacement registers the placement collectors on reg.
func NewPlacement(reg prometheus.Registerer) *Placement {
	f := promauto.With(reg)
	return &Placement{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "doogybook",
			Subsystem: "placement",
			Name:      "operations_total",
			Help:      "Placement workflow operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "doogybook",
			Subsystem: "placement",
			Name:      "operation_duration_seconds",
			Help:      "Placement workflow operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// Observe records one operation.
func (p *Placement) Observe(operation, outcome string, d time.Duration) {
	if p == nil {
		return
	}
	p.operations.WithLabelValues(operation, outcome).Inc()
	p.duration.WithLabelValues(operation).Observe(d.Seconds())
}
