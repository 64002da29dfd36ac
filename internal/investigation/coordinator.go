package investigation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shriharshan/incident-commander/internal/model"
)

// Coordinator fans an investigation plan out to one goroutine per assignment
// and collects every finding. Run always returns exactly one finding per
// assignment, in plan order, even when the overall deadline elapses first.
type Coordinator struct {
	investigators map[model.AgentRole]Investigator
}

// NewCoordinator returns a Coordinator dispatching to the given agents.
func NewCoordinator(investigators ...Investigator) *Coordinator {
	byRole := make(map[model.AgentRole]Investigator, len(investigators))
	for _, in := range investigators {
		byRole[in.Role()] = in
	}
	return &Coordinator{investigators: byRole}
}

// Run executes every assignment concurrently under the plan's overall
// deadline. Each agent additionally gets its own per-assignment deadline,
// clipped by whatever remains of the overall budget. An assignment with no
// registered investigator yields a skipped finding; agents still running
// when the overall deadline elapses yield timed-out findings.
func (c *Coordinator) Run(ctx context.Context, plan *model.InvestigationPlan) []model.Finding {
	overall, cancel := context.WithTimeout(ctx, plan.Deadline)
	defer cancel()

	n := len(plan.Assignments)
	type indexed struct {
		i int
		f model.Finding
	}
	// Buffered so late agents can deliver and exit after Run has returned.
	results := make(chan indexed, n)

	start := time.Now()
	for i, as := range plan.Assignments {
		inv := c.investigators[as.Role]
		go func(i int, as model.Assignment, inv Investigator) {
			if inv == nil {
				results <- indexed{i, model.Finding{
					Role:   as.Role,
					Status: model.FindingSkipped,
					Error:  "no investigator registered for role",
				}}
				return
			}
			agentCtx, cancelAgent := context.WithTimeout(overall, as.Deadline)
			defer cancelAgent()
			results <- indexed{i, inv.Investigate(agentCtx, as)}
		}(i, as, inv)
	}

	findings := make([]model.Finding, n)
	done := make([]bool, n)
	for received := 0; received < n; {
		select {
		case r := <-results:
			findings[r.i] = r.f
			done[r.i] = true
			received++
		case <-overall.Done():
			for i := range findings {
				if !done[i] {
					findings[i] = model.Finding{
						Role:     plan.Assignments[i].Role,
						Status:   model.FindingTimedOut,
						Error:    "investigation deadline elapsed",
						Duration: time.Since(start),
					}
				}
			}
			c.logFindings(plan.IncidentID, findings, start)
			return findings
		}
	}

	c.logFindings(plan.IncidentID, findings, start)
	return findings
}

func (c *Coordinator) logFindings(incidentID string, findings []model.Finding, start time.Time) {
	completed := 0
	for _, f := range findings {
		if !f.Degraded() {
			completed++
		}
		zap.L().Info("investigate: agent finished",
			zap.String("incident_id", incidentID),
			zap.String("role", string(f.Role)),
			zap.String("status", string(f.Status)),
			zap.Int("items", len(f.Items)),
			zap.Duration("duration", f.Duration),
		)
	}
	zap.L().Info("investigate: fan-in complete",
		zap.String("incident_id", incidentID),
		zap.Int("completed", completed),
		zap.Int("total", len(findings)),
		zap.Duration("elapsed", time.Since(start)),
	)
}
