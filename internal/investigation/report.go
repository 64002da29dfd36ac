package investigation

import (
	"time"

	"github.com/shriharshan/incident-commander/internal/model"
)

// Reporter assembles the final RCA report. Assembly is pure apart from the
// injected clock: identical inputs and clock always produce an identical
// report, and rendering the same report twice yields byte-identical output.
type Reporter struct {
	now func() time.Time
}

// NewReporter returns a Reporter using the given clock; a nil clock means
// time.Now.
func NewReporter(now func() time.Time) *Reporter {
	if now == nil {
		now = time.Now
	}
	return &Reporter{now: now}
}

// Render assembles the report from the verdict and its inputs. Slices are
// copied so later mutation of the arguments cannot change the report.
func (r *Reporter) Render(incidentID string, alert model.Alert, ev model.Evidence, hyp model.RootCauseHypothesis, actions []model.RecommendedAction, timings []model.StageTiming) *model.RCAReport {
	report := &model.RCAReport{
		IncidentID:  incidentID,
		Alert:       alert,
		Evidence:    ev,
		Hypothesis:  hyp,
		Actions:     make([]model.RecommendedAction, len(actions)),
		GeneratedAt: r.now().UTC(),
		Timings:     make([]model.StageTiming, len(timings)),
	}
	copy(report.Actions, actions)
	copy(report.Timings, timings)
	return report
}
