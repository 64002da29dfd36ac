package investigation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shriharshan/incident-commander/internal/model"
	"github.com/shriharshan/incident-commander/internal/resilience"
	"github.com/shriharshan/incident-commander/pkg/deployfeed"
)

// deploysInvestigator pulls the deployments and config changes that landed
// before the incident and has the reasoning step rank the suspects.
type deploysInvestigator struct {
	feed   deployfeed.Client
	reason *reasoner
	retry  resilience.RetryConfig
}

func newDeploysInvestigator(feed deployfeed.Client, r *reasoner) Investigator {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("deployfeed", "recent")
	return &deploysInvestigator{feed: feed, reason: r, retry: retry}
}

func (in *deploysInvestigator) Role() model.AgentRole { return model.RoleDeploys }

func (in *deploysInvestigator) Investigate(ctx context.Context, as model.Assignment) model.Finding {
	start := time.Now()

	deploys, err := resilience.DoVal(ctx, in.retry, func(ctx context.Context) ([]deployfeed.Deployment, error) {
		return in.feed.Recent(ctx, deployfeed.Query{
			Service: as.Query.Service,
			Start:   as.Window.Start,
			End:     as.Window.End,
		})
	})
	if err != nil {
		return degradedFinding(in.Role(), &model.SourceUnavailableError{Source: "deployfeed", Err: err}, start)
	}

	if len(deploys) == 0 {
		return model.Finding{
			Role:     in.Role(),
			Status:   model.FindingCompleted,
			Summary:  "No deployments or configuration changes in the incident window.",
			Duration: time.Since(start),
		}
	}

	analysis, err := in.reason.extract(ctx, deploysSystemPrompt, buildDeploysPrompt(as, deploys))
	if err != nil {
		return degradedFinding(in.Role(), err, start)
	}

	return model.Finding{
		Role:     in.Role(),
		Status:   model.FindingCompleted,
		Items:    toEvidenceItems(analysis, as.Window),
		Summary:  analysis.Summary,
		Duration: time.Since(start),
	}
}

func buildDeploysPrompt(as model.Assignment, deploys []deployfeed.Deployment) string {
	type annotated struct {
		deployfeed.Deployment
		MinutesBeforeAlert float64 `json:"minutes_before_alert"`
	}
	list := make([]annotated, len(deploys))
	for i, d := range deploys {
		list[i] = annotated{Deployment: d, MinutesBeforeAlert: d.MinutesBefore(as.Window.End)}
	}
	raw, _ := json.MarshalIndent(list, "", "  ")
	return fmt.Sprintf("Service: %s\nAlert time: %s\n\nDeployments in the window, most recent first:\n%s",
		as.Query.Service,
		as.Window.End.UTC().Format(time.RFC3339),
		raw,
	)
}
