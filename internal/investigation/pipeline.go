package investigation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shriharshan/incident-commander/internal/config"
	"github.com/shriharshan/incident-commander/internal/metrics"
	"github.com/shriharshan/incident-commander/internal/model"
	"github.com/shriharshan/incident-commander/internal/store"
	"github.com/shriharshan/incident-commander/pkg/anthropic"
	"github.com/shriharshan/incident-commander/pkg/deployfeed"
	"github.com/shriharshan/incident-commander/pkg/logsearch"
	"github.com/shriharshan/incident-commander/pkg/metricfeed"
)

// Pipeline orchestrates one investigation end to end: plan, fan-out to the
// agents, aggregate, decide, plan actions, and report.
type Pipeline struct {
	cfg         *config.Config
	store       store.Store
	planner     *Planner
	coordinator *Coordinator
	decider     *Decider
	actions     *ActionPlanner
	reporter    *Reporter
}

// New creates a Pipeline with all dependencies. The store may be nil, in
// which case reports are not persisted.
func New(
	cfg *config.Config,
	st store.Store,
	aiClient anthropic.Client,
	logsClient logsearch.Client,
	metricsClient metricfeed.Client,
	deploysClient deployfeed.Client,
	actionPlanner *ActionPlanner,
) *Pipeline {
	r := &reasoner{ai: aiClient, cfg: cfg.Anthropic}
	return &Pipeline{
		cfg:     cfg,
		store:   st,
		planner: NewPlanner(cfg.Pipeline),
		coordinator: NewCoordinator(
			newLogsInvestigator(logsClient, r),
			newMetricsInvestigator(metricsClient, r),
			newDeploysInvestigator(deploysClient, r),
		),
		decider:  NewDecider(aiClient, cfg.Pipeline, cfg.Anthropic),
		actions:  actionPlanner,
		reporter: NewReporter(nil),
	}
}

// NewIncidentID returns a fresh incident identifier anchored to the alert
// timestamp.
func NewIncidentID(t time.Time) string {
	return fmt.Sprintf("INC-%s-%s",
		t.UTC().Format("20060102T150405"),
		strings.ToUpper(uuid.NewString()[:8]),
	)
}

// Run executes the full investigation for one alert. Only an invalid alert
// returns an error; every other failure degrades the report instead. A
// persistence failure is logged and leaves the stored location empty without
// downgrading the outcome.
func (p *Pipeline) Run(ctx context.Context, alert model.Alert) (*model.InvestigationResult, error) {
	incidentID := NewIncidentID(alert.Timestamp)
	log := zap.L().With(
		zap.String("incident_id", incidentID),
		zap.String("service", alert.Service),
		zap.String("metric", alert.Metric),
	)
	log.Info("pipeline: starting investigation")
	runStart := time.Now()

	var timings []model.StageTiming
	trackStage := func(name string, fn func() error) {
		start := time.Now()
		err := fn()
		duration := time.Since(start)

		timing := model.StageTiming{
			Name:       name,
			Status:     model.StageStatusComplete,
			DurationMS: duration.Milliseconds(),
		}
		if err != nil {
			timing.Status = model.StageStatusFailed
			timing.Error = err.Error()
			log.Error("pipeline: stage failed",
				zap.String("stage", name),
				zap.Int64("duration_ms", timing.DurationMS),
				zap.Error(err),
			)
		} else {
			log.Info("pipeline: stage complete",
				zap.String("stage", name),
				zap.Int64("duration_ms", timing.DurationMS),
			)
		}
		metrics.ObserveStage(name, duration)
		timings = append(timings, timing)
	}

	var plan *model.InvestigationPlan
	var planErr error
	trackStage("plan", func() error {
		plan, planErr = p.planner.Plan(incidentID, alert)
		return planErr
	})
	if planErr != nil {
		metrics.ObserveInvestigation(time.Since(runStart), model.OutcomeFailure)
		return &model.InvestigationResult{
			IncidentID: incidentID,
			Outcome:    model.OutcomeFailure,
		}, planErr
	}

	var findings []model.Finding
	trackStage("investigate", func() error {
		findings = p.coordinator.Run(ctx, plan)
		for _, f := range findings {
			metrics.ObserveFinding(f.Role, f.Status)
		}
		return nil
	})

	var evidence model.Evidence
	trackStage("aggregate", func() error {
		evidence = Aggregate(findings)
		return nil
	})

	var hypothesis model.RootCauseHypothesis
	trackStage("decide", func() error {
		hypothesis = p.decider.Decide(ctx, alert, evidence)
		return nil
	})

	var actions []model.RecommendedAction
	trackStage("plan_actions", func() error {
		actions = p.actions.PlanActions(hypothesis)
		return nil
	})

	report := p.reporter.Render(incidentID, alert, evidence, hypothesis, actions, timings)

	outcome := model.OutcomeDegraded
	if hypothesis.Verdict == model.VerdictConclusive && evidence.Coverage == 1 {
		outcome = model.OutcomeSuccess
	}

	result := &model.InvestigationResult{
		IncidentID: incidentID,
		Outcome:    outcome,
		Report:     report,
	}

	if p.store != nil {
		if loc, err := p.store.SaveReport(ctx, result); err != nil {
			log.Warn("pipeline: report persistence failed", zap.Error(err))
		} else {
			result.StoredLocation = loc
		}
	}

	metrics.ObserveInvestigation(time.Since(runStart), outcome)
	log.Info("pipeline: investigation finished",
		zap.String("outcome", string(outcome)),
		zap.String("verdict", string(hypothesis.Verdict)),
		zap.Float64("confidence", hypothesis.Confidence),
		zap.Duration("elapsed", time.Since(runStart)),
	)
	return result, nil
}
