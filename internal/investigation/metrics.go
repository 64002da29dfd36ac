package investigation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shriharshan/incident-commander/internal/model"
	"github.com/shriharshan/incident-commander/internal/resilience"
	"github.com/shriharshan/incident-commander/pkg/metricfeed"
)

// metricsInvestigator fetches the alerting metric's series for the incident
// window and has the reasoning step characterize the anomaly.
type metricsInvestigator struct {
	feed   metricfeed.Client
	reason *reasoner
	retry  resilience.RetryConfig
}

func newMetricsInvestigator(feed metricfeed.Client, r *reasoner) Investigator {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("metricfeed", "query_series")
	return &metricsInvestigator{feed: feed, reason: r, retry: retry}
}

func (in *metricsInvestigator) Role() model.AgentRole { return model.RoleMetrics }

func (in *metricsInvestigator) Investigate(ctx context.Context, as model.Assignment) model.Finding {
	start := time.Now()

	series, err := resilience.DoVal(ctx, in.retry, func(ctx context.Context) (*metricfeed.Series, error) {
		return in.feed.QuerySeries(ctx, metricfeed.Query{
			Service: as.Query.Service,
			Metric:  as.Query.Metric,
			Start:   as.Window.Start,
			End:     as.Window.End,
		})
	})
	if err != nil {
		return degradedFinding(in.Role(), &model.SourceUnavailableError{Source: "metricfeed", Err: err}, start)
	}

	if len(series.Points) == 0 {
		return model.Finding{
			Role:     in.Role(),
			Status:   model.FindingCompleted,
			Summary:  fmt.Sprintf("No datapoints for %s in the incident window.", as.Query.Metric),
			Duration: time.Since(start),
		}
	}

	analysis, err := in.reason.extract(ctx, metricsSystemPrompt, buildMetricsPrompt(as, series))
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

func buildMetricsPrompt(as model.Assignment, series *metricfeed.Series) string {
	stats := metricfeed.Summarize(series.Points)
	payload := map[string]any{
		"metric":         series.Metric,
		"current":        stats.Current,
		"baseline":       stats.Baseline,
		"peak":           stats.Peak,
		"spike_detected": stats.SpikeDetected,
		"points":         series.Points,
	}
	if stats.SpikeStart != nil {
		payload["spike_start"] = stats.SpikeStart.UTC().Format(time.RFC3339)
	}
	raw, _ := json.MarshalIndent(payload, "", "  ")
	return fmt.Sprintf("Service: %s\nWindow: %s to %s\n\nMetric series and statistics:\n%s",
		as.Query.Service,
		as.Window.Start.UTC().Format(time.RFC3339),
		as.Window.End.UTC().Format(time.RFC3339),
		raw,
	)
}
