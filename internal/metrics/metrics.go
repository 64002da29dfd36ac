// Package metrics exposes Prometheus collectors for the investigation
// pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shriharshan/incident-commander/internal/model"
)

var (
	investigationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incident_commander",
			Name:      "investigations_total",
			Help:      "Total number of investigations run, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	investigationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "incident_commander",
			Name:      "investigation_seconds",
			Help:      "Whole-investigation latency in seconds.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 90, 120, 180},
		},
	)

	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "incident_commander",
			Name:      "stage_seconds",
			Help:      "Per-stage latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	agentFindingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incident_commander",
			Name:      "agent_findings_total",
			Help:      "Agent findings by role and terminal status.",
		},
		[]string{"role", "status"},
	)
)

// Register attaches all collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		investigationsTotal,
		investigationDurationSeconds,
		stageDurationSeconds,
		agentFindingsTotal,
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

// ObserveInvestigation records a finished investigation.
func ObserveInvestigation(duration time.Duration, outcome model.Outcome) {
	investigationsTotal.WithLabelValues(string(outcome)).Inc()
	if duration < 0 {
		duration = 0
	}
	investigationDurationSeconds.Observe(duration.Seconds())
}

// ObserveStage records one pipeline stage's duration.
func ObserveStage(stage string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveFinding records one agent finding's terminal status.
func ObserveFinding(role model.AgentRole, status model.FindingStatus) {
	agentFindingsTotal.WithLabelValues(string(role), string(status)).Inc()
}
