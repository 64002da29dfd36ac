package investigation

import (
	"go.uber.org/zap"

	"github.com/shriharshan/incident-commander/internal/config"
	"github.com/shriharshan/incident-commander/internal/model"
)

// defaultLogKeywords narrows log searches to failure-bearing entries.
var defaultLogKeywords = []string{"error", "exception", "timeout", "failed"}

// Planner turns a validated alert into per-agent assignments. Planning is
// deterministic: the same alert and configuration always produce the same
// plan.
type Planner struct {
	cfg config.PipelineConfig
}

// NewPlanner returns a Planner using the given pipeline budgets.
func NewPlanner(cfg config.PipelineConfig) *Planner {
	return &Planner{cfg: cfg}
}

// Plan validates the alert and produces one assignment per agent role, all
// sharing the lookback window that ends at the alert timestamp. The per-agent
// deadline never exceeds the whole-investigation deadline.
func (p *Planner) Plan(incidentID string, alert model.Alert) (*model.InvestigationPlan, error) {
	if err := alert.Validate(); err != nil {
		return nil, err
	}

	window := model.TimeWindow{
		Start: alert.Timestamp.Add(-p.cfg.Lookback()),
		End:   alert.Timestamp,
	}

	agentDeadline := p.cfg.AgentDeadline()
	if total := p.cfg.TotalDeadline(); agentDeadline > total {
		agentDeadline = total
	}

	assignments := make([]model.Assignment, 0, len(model.AllRoles))
	for _, role := range model.AllRoles {
		query := model.QueryParams{Service: alert.Service}
		switch role {
		case model.RoleLogs:
			query.Keywords = defaultLogKeywords
		case model.RoleMetrics:
			query.Metric = alert.Metric
		}
		assignments = append(assignments, model.Assignment{
			Role:     role,
			Window:   window,
			Query:    query,
			Deadline: agentDeadline,
		})
	}

	zap.L().Info("plan: assignments created",
		zap.String("incident_id", incidentID),
		zap.String("service", alert.Service),
		zap.Int("agents", len(assignments)),
		zap.Time("window_start", window.Start),
		zap.Time("window_end", window.End),
	)

	return &model.InvestigationPlan{
		IncidentID:  incidentID,
		Alert:       alert,
		Assignments: assignments,
		Deadline:    p.cfg.TotalDeadline(),
	}, nil
}
