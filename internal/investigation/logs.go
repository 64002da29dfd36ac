package investigation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shriharshan/incident-commander/internal/model"
	"github.com/shriharshan/incident-commander/internal/resilience"
	"github.com/shriharshan/incident-commander/pkg/logsearch"
)

// logsInvestigator searches error-level logs for the incident window and has
// the reasoning step extract the distinct failure signals.
type logsInvestigator struct {
	logs   logsearch.Client
	reason *reasoner
	retry  resilience.RetryConfig
}

func newLogsInvestigator(logs logsearch.Client, r *reasoner) Investigator {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("logsearch", "search")
	return &logsInvestigator{logs: logs, reason: r, retry: retry}
}

func (in *logsInvestigator) Role() model.AgentRole { return model.RoleLogs }

func (in *logsInvestigator) Investigate(ctx context.Context, as model.Assignment) model.Finding {
	start := time.Now()

	res, err := resilience.DoVal(ctx, in.retry, func(ctx context.Context) (*logsearch.Result, error) {
		return in.logs.Search(ctx, logsearch.Query{
			Service:  as.Query.Service,
			Start:    as.Window.Start,
			End:      as.Window.End,
			Keywords: as.Query.Keywords,
			Limit:    200,
		})
	})
	if err != nil {
		return degradedFinding(in.Role(), &model.SourceUnavailableError{Source: "logsearch", Err: err}, start)
	}

	if res.TotalErrors == 0 {
		zap.L().Info("investigate: no errors in window",
			zap.String("role", string(in.Role())),
			zap.String("service", as.Query.Service),
		)
		return model.Finding{
			Role:     in.Role(),
			Status:   model.FindingCompleted,
			Summary:  "No error-level log entries in the incident window.",
			Duration: time.Since(start),
		}
	}

	analysis, err := in.reason.extract(ctx, logsSystemPrompt, buildLogsPrompt(as, res))
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

func buildLogsPrompt(as model.Assignment, res *logsearch.Result) string {
	entries := res.Entries
	if len(entries) > 50 {
		entries = entries[:50]
	}
	raw, _ := json.MarshalIndent(map[string]any{
		"total_errors":    res.TotalErrors,
		"error_breakdown": res.Breakdown,
		"top_error":       res.TopError,
		"sample_entries":  entries,
	}, "", "  ")
	return fmt.Sprintf("Service: %s\nWindow: %s to %s\n\nLog search results:\n%s",
		as.Query.Service,
		as.Window.Start.UTC().Format(time.RFC3339),
		as.Window.End.UTC().Format(time.RFC3339),
		raw,
	)
}
