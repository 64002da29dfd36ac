package investigation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shriharshan/incident-commander/internal/model"
)

func testPlan(total, perAgent time.Duration) *model.InvestigationPlan {
	alert := testAlert()
	window := model.TimeWindow{Start: alert.Timestamp.Add(-30 * time.Minute), End: alert.Timestamp}
	var assignments []model.Assignment
	for _, role := range model.AllRoles {
		assignments = append(assignments, model.Assignment{
			Role:     role,
			Window:   window,
			Query:    model.QueryParams{Service: alert.Service},
			Deadline: perAgent,
		})
	}
	return &model.InvestigationPlan{
		IncidentID:  "INC-COORD-1",
		Alert:       alert,
		Assignments: assignments,
		Deadline:    total,
	}
}

func completedFinding(role model.AgentRole, sig string) model.Finding {
	return model.Finding{
		Role:   role,
		Status: model.FindingCompleted,
		Items: []model.EvidenceItem{{
			Signature:   sig,
			Description: sig,
			Weight:      0.8,
			Timestamp:   time.Date(2026, 3, 14, 11, 55, 0, 0, time.UTC),
		}},
		Summary: "found " + sig,
	}
}

func TestCoordinatorReturnsFindingsInPlanOrder(t *testing.T) {
	plan := testPlan(5*time.Second, 2*time.Second)

	var invs []Investigator
	for _, role := range model.AllRoles {
		inv := &mockInvestigator{role: role}
		inv.On("Investigate", mock.Anything, mock.Anything).Return(completedFinding(role, "sig_"+string(role)))
		invs = append(invs, inv)
	}

	findings := NewCoordinator(invs...).Run(context.Background(), plan)

	require.Len(t, findings, len(plan.Assignments))
	for i, as := range plan.Assignments {
		assert.Equal(t, as.Role, findings[i].Role)
		assert.Equal(t, model.FindingCompleted, findings[i].Status)
	}
}

func TestCoordinatorSkipsUnregisteredRole(t *testing.T) {
	plan := testPlan(5*time.Second, 2*time.Second)

	logsInv := &mockInvestigator{role: model.RoleLogs}
	logsInv.On("Investigate", mock.Anything, mock.Anything).Return(completedFinding(model.RoleLogs, "sig_logs"))

	findings := NewCoordinator(logsInv).Run(context.Background(), plan)

	require.Len(t, findings, 3)
	assert.Equal(t, model.FindingCompleted, findings[0].Status)
	assert.Equal(t, model.FindingSkipped, findings[1].Status)
	assert.Equal(t, model.FindingSkipped, findings[2].Status)
	assert.Empty(t, findings[1].Items)
}

// slowInvestigator blocks until its context is done, then reports timed out.
type slowInvestigator struct {
	role model.AgentRole
}

func (s *slowInvestigator) Role() model.AgentRole { return s.role }

func (s *slowInvestigator) Investigate(ctx context.Context, as model.Assignment) model.Finding {
	<-ctx.Done()
	return model.Finding{Role: s.role, Status: model.FindingTimedOut, Error: "deadline exceeded"}
}

// stuckInvestigator never returns until long after any test deadline,
// ignoring its context entirely.
type stuckInvestigator struct {
	role model.AgentRole
}

func (s *stuckInvestigator) Role() model.AgentRole { return s.role }

func (s *stuckInvestigator) Investigate(ctx context.Context, as model.Assignment) model.Finding {
	time.Sleep(10 * time.Second)
	return model.Finding{Role: s.role, Status: model.FindingCompleted}
}

func TestCoordinatorHonorsAgentDeadline(t *testing.T) {
	plan := testPlan(5*time.Second, 50*time.Millisecond)

	fast := &mockInvestigator{role: model.RoleLogs}
	fast.On("Investigate", mock.Anything, mock.Anything).Return(completedFinding(model.RoleLogs, "sig_logs"))

	findings := NewCoordinator(
		fast,
		&slowInvestigator{role: model.RoleMetrics},
		&slowInvestigator{role: model.RoleDeploys},
	).Run(context.Background(), plan)

	require.Len(t, findings, 3)
	assert.Equal(t, model.FindingCompleted, findings[0].Status)
	assert.Equal(t, model.FindingTimedOut, findings[1].Status)
	assert.Equal(t, model.FindingTimedOut, findings[2].Status)
}

func TestCoordinatorOverallDeadlineBackstop(t *testing.T) {
	// The stuck agent ignores its context; the overall deadline must still
	// produce a full findings slice promptly.
	plan := testPlan(100*time.Millisecond, 5*time.Second)

	fast := &mockInvestigator{role: model.RoleLogs}
	fast.On("Investigate", mock.Anything, mock.Anything).Return(completedFinding(model.RoleLogs, "sig_logs"))

	start := time.Now()
	findings := NewCoordinator(
		fast,
		&stuckInvestigator{role: model.RoleMetrics},
		&stuckInvestigator{role: model.RoleDeploys},
	).Run(context.Background(), plan)
	elapsed := time.Since(start)

	require.Len(t, findings, 3)
	assert.Less(t, elapsed, 2*time.Second)
	assert.Equal(t, model.FindingCompleted, findings[0].Status)
	assert.Equal(t, model.FindingTimedOut, findings[1].Status)
	assert.Equal(t, model.FindingTimedOut, findings[2].Status)
	assert.Empty(t, findings[1].Items)
	assert.Empty(t, findings[2].Items)
}

func TestCoordinatorDegradedAgentDoesNotBlockOthers(t *testing.T) {
	plan := testPlan(5*time.Second, 50*time.Millisecond)

	failing := &mockInvestigator{role: model.RoleLogs}
	failing.On("Investigate", mock.Anything, mock.Anything).Return(model.Finding{
		Role:   model.RoleLogs,
		Status: model.FindingFailed,
		Error:  "source unavailable: logsearch",
	})
	okMetrics := &mockInvestigator{role: model.RoleMetrics}
	okMetrics.On("Investigate", mock.Anything, mock.Anything).Return(completedFinding(model.RoleMetrics, "sig_metrics"))
	okDeploys := &mockInvestigator{role: model.RoleDeploys}
	okDeploys.On("Investigate", mock.Anything, mock.Anything).Return(completedFinding(model.RoleDeploys, "sig_deploys"))

	findings := NewCoordinator(failing, okMetrics, okDeploys).Run(context.Background(), plan)

	assert.Equal(t, model.FindingFailed, findings[0].Status)
	assert.Equal(t, model.FindingCompleted, findings[1].Status)
	assert.Equal(t, model.FindingCompleted, findings[2].Status)
}
