package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// StageTiming records one pipeline stage's terminal state and elapsed time.
type StageTiming struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

const (
	StageStatusComplete = "complete"
	StageStatusFailed   = "failed"
	StageStatusSkipped  = "skipped"
)

// RCAReport is the final artifact of an investigation. It always carries a
// hypothesis (possibly inconclusive) plus the evidence that justifies it.
type RCAReport struct {
	IncidentID  string              `json:"incident_id"`
	Alert       Alert               `json:"alert"`
	Evidence    Evidence            `json:"evidence"`
	Hypothesis  RootCauseHypothesis `json:"hypothesis"`
	Actions     []RecommendedAction `json:"actions"`
	GeneratedAt time.Time           `json:"generated_at"`
	Timings     []StageTiming       `json:"timings"`
}

// Outcome is the terminal status of one investigation run.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeDegraded Outcome = "degraded_success"
	OutcomeFailure  Outcome = "failure"
)

// InvestigationResult pairs the report with the run's terminal status. The
// stored location is advisory; a persistence failure never downgrades the
// outcome.
type InvestigationResult struct {
	IncidentID     string     `json:"incident_id"`
	Outcome        Outcome    `json:"outcome"`
	Report         *RCAReport `json:"report,omitempty"`
	StoredLocation string     `json:"stored_location,omitempty"`
}

// Markdown renders the report for human review. Rendering is pure: the same
// report value always yields byte-identical output.
func (r *RCAReport) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Root Cause Analysis Report\n\n")
	fmt.Fprintf(&b, "**Incident ID:** %s\n", r.IncidentID)
	fmt.Fprintf(&b, "**Service:** %s\n", r.Alert.Service)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", r.GeneratedAt.UTC().Format(time.RFC3339))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "**Root Cause:** %s\n", r.Hypothesis.PrimaryCause)
	fmt.Fprintf(&b, "**Verdict:** %s\n", r.Hypothesis.Verdict)
	fmt.Fprintf(&b, "**Confidence:** %.1f%%\n", r.Hypothesis.Confidence*100)
	if r.Hypothesis.Caveat != "" {
		fmt.Fprintf(&b, "**Caveat:** %s\n", r.Hypothesis.Caveat)
	}
	b.WriteString("\n")

	b.WriteString("## Alert Details\n\n")
	fmt.Fprintf(&b, "- **Metric:** %s\n", r.Alert.Metric)
	fmt.Fprintf(&b, "- **Observed:** %v (threshold %v)\n", r.Alert.CurrentValue, r.Alert.Threshold)
	fmt.Fprintf(&b, "- **Severity:** %s\n", r.Alert.Severity)
	fmt.Fprintf(&b, "- **Triggered:** %s\n\n", r.Alert.Timestamp.UTC().Format(time.RFC3339))

	b.WriteString("## Evidence\n\n")
	fmt.Fprintf(&b, "Coverage: %.0f%% of planned agents completed.\n\n", r.Evidence.Coverage*100)
	if len(r.Evidence.Items) == 0 {
		b.WriteString("*No evidence found.*\n\n")
	} else {
		for _, it := range r.Evidence.Items {
			roles := make([]string, len(it.Roles))
			for i, role := range it.Roles {
				roles[i] = string(role)
			}
			fmt.Fprintf(&b, "- [%.2f] %s (%s)\n", it.Weight, it.Description, strings.Join(roles, ", "))
		}
		b.WriteString("\n")
	}

	if len(r.Evidence.Missing) > 0 {
		b.WriteString("## Missing Sources\n\n")
		for _, m := range r.Evidence.Missing {
			line := fmt.Sprintf("- %s: %s", m.Role, m.Status)
			if m.Reason != "" {
				line += " (" + m.Reason + ")"
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	if len(r.Hypothesis.Alternatives) > 0 {
		b.WriteString("## Alternative Hypotheses\n\n")
		for i, alt := range r.Hypothesis.Alternatives {
			fmt.Fprintf(&b, "%d. %s (weight %.2f)\n", i+1, alt.Cause, alt.Weight)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Recommendations\n\n")
	actions := make([]RecommendedAction, len(r.Actions))
	copy(actions, r.Actions)
	sort.Slice(actions, func(i, j int) bool { return actions[i].Priority < actions[j].Priority })
	for _, a := range actions {
		fmt.Fprintf(&b, "%d. %s\n   %s\n", a.Priority, a.Description, a.Rationale)
	}
	b.WriteString("\n")

	b.WriteString("## Pipeline Timing\n\n")
	for _, t := range r.Timings {
		fmt.Fprintf(&b, "- %s: %s (%dms)\n", t.Name, t.Status, t.DurationMS)
		if t.Error != "" {
			fmt.Fprintf(&b, "  Error: %s\n", t.Error)
		}
	}

	return b.String()
}
