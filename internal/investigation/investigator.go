package investigation

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shriharshan/incident-commander/internal/config"
	"github.com/shriharshan/incident-commander/internal/model"
	"github.com/shriharshan/incident-commander/pkg/anthropic"
)

// Investigator runs one evidence domain's slice of an investigation. It must
// honor the assignment's context deadline and always returns a finding; it
// never returns an error. Failures of its backing source or of the reasoning
// step are recovered locally as a degraded finding.
type Investigator interface {
	Role() model.AgentRole
	Investigate(ctx context.Context, as model.Assignment) model.Finding
}

// agentAnalysis is the JSON contract every role's reasoning step returns.
type agentAnalysis struct {
	Summary string         `json:"summary"`
	Items   []analysisItem `json:"items"`
}

type analysisItem struct {
	Signature   string  `json:"signature"`
	Description string  `json:"description"`
	SourceRef   string  `json:"source_ref"`
	Weight      float64 `json:"weight"`
	Timestamp   string  `json:"timestamp"`
}

// maxItemsPerFinding caps how many evidence items one agent may contribute.
const maxItemsPerFinding = 5

// reasoner is the shared reasoning step: it sends structured source data to
// the model and parses the JSON analysis back out.
type reasoner struct {
	ai  anthropic.Client
	cfg config.AnthropicConfig
}

func (r *reasoner) extract(ctx context.Context, system, user string) (*agentAnalysis, error) {
	temp := 0.1
	resp, err := r.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       r.cfg.Model,
		MaxTokens:   int64(r.cfg.MaxTokens),
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, &model.ReasoningUnavailableError{Err: err}
	}
	resp.Usage.LogCost(r.cfg.Model, "investigate")

	var analysis agentAnalysis
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &analysis); err != nil {
		return nil, &model.ReasoningUnavailableError{Err: eris.Wrap(err, "investigate: parse analysis")}
	}
	return &analysis, nil
}

// toEvidenceItems converts a parsed analysis into model items: weights are
// clamped to [0, 1], timestamps parsed with the window end as fallback, and
// the count capped. Items with no usable signature or description are dropped.
func toEvidenceItems(analysis *agentAnalysis, window model.TimeWindow) []model.EvidenceItem {
	items := make([]model.EvidenceItem, 0, len(analysis.Items))
	for _, it := range analysis.Items {
		sig := strings.TrimSpace(it.Signature)
		desc := strings.TrimSpace(it.Description)
		if sig == "" && desc == "" {
			continue
		}
		if sig == "" {
			sig = strings.ToLower(strings.ReplaceAll(desc, " ", "_"))
		}
		w := it.Weight
		if w < 0 {
			w = 0
		}
		if w > 1 {
			w = 1
		}
		ts := window.End
		if parsed, err := time.Parse(time.RFC3339, it.Timestamp); err == nil {
			ts = parsed
		}
		items = append(items, model.EvidenceItem{
			Signature:   sig,
			Description: desc,
			SourceRef:   it.SourceRef,
			Weight:      w,
			Timestamp:   ts,
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Weight > items[j].Weight })
	if len(items) > maxItemsPerFinding {
		items = items[:maxItemsPerFinding]
	}
	return items
}

// degradedFinding maps a fetch or reasoning failure to the finding status the
// coordinator expects: deadline or cancellation means timed out, anything
// else means failed. Degraded findings never carry evidence items.
func degradedFinding(role model.AgentRole, err error, start time.Time) model.Finding {
	status := model.FindingFailed
	reason := err.Error()
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = model.FindingTimedOut
		reason = "deadline exceeded"
	} else {
		var se *model.SourceUnavailableError
		var re *model.ReasoningUnavailableError
		switch {
		case errors.As(err, &se):
			reason = "source unavailable: " + se.Source
		case errors.As(err, &re):
			reason = "reasoning unavailable"
		}
	}
	zap.L().Warn("investigate: agent degraded",
		zap.String("role", string(role)),
		zap.String("status", string(status)),
		zap.Error(err),
	)
	return model.Finding{
		Role:     role,
		Status:   status,
		Error:    reason,
		Duration: time.Since(start),
	}
}

// cleanJSON strips markdown fences and any surrounding prose from a model
// response, leaving the outermost JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
