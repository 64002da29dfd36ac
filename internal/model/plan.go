package model

import "time"

// AgentRole identifies one evidence domain investigated by a dedicated agent.
type AgentRole string

const (
	RoleLogs    AgentRole = "logs"
	RoleMetrics AgentRole = "metrics"
	RoleDeploys AgentRole = "deploys"
)

// AllRoles is the default agent roster, in plan order.
var AllRoles = []AgentRole{RoleLogs, RoleMetrics, RoleDeploys}

// TimeWindow is a half-open interval [Start, End) bounding a query.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// QueryParams carries the source-specific query inputs for one assignment.
type QueryParams struct {
	Service  string   `json:"service"`
	Metric   string   `json:"metric,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// Assignment is one agent's slice of the investigation: a role, the time
// window it may query, and the per-agent deadline.
type Assignment struct {
	Role     AgentRole     `json:"role"`
	Window   TimeWindow    `json:"window"`
	Query    QueryParams   `json:"query"`
	Deadline time.Duration `json:"deadline"`
}

// InvestigationPlan is the Planner's work assignment for one incident.
// It is read-only for the Coordinator and discarded after the run.
type InvestigationPlan struct {
	IncidentID  string        `json:"incident_id"`
	Alert       Alert         `json:"alert"`
	Assignments []Assignment  `json:"assignments"`
	Deadline    time.Duration `json:"deadline"`
}
