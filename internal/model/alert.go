package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Alert is the triggering signal for an investigation: a metric threshold
// breach observed on a service. Alerts are immutable once constructed.
type Alert struct {
	Service       string    `json:"service"`
	Metric        string    `json:"metric"`
	CurrentValue  float64   `json:"current_value"`
	Threshold     float64   `json:"threshold"`
	Severity      string    `json:"severity"`
	Timestamp     time.Time `json:"timestamp"`
	TriggerSource string    `json:"trigger_source,omitempty"`
}

// Validate checks that the alert carries the fields every downstream stage
// depends on. A failing alert is the only condition that aborts a pipeline run.
func (a Alert) Validate() error {
	if a.Service == "" {
		return eris.Wrap(ErrInvalidAlert, "missing service")
	}
	if a.Metric == "" {
		return eris.Wrap(ErrInvalidAlert, "missing metric")
	}
	if a.Timestamp.IsZero() {
		return eris.Wrap(ErrInvalidAlert, "missing or unparseable timestamp")
	}
	return nil
}

// BreachFactor returns how far the observed value is past the threshold,
// as a multiple. Returns 0 when the threshold is zero.
func (a Alert) BreachFactor() float64 {
	if a.Threshold == 0 {
		return 0
	}
	return a.CurrentValue / a.Threshold
}
