package investigation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shriharshan/incident-commander/internal/config"
	"github.com/shriharshan/incident-commander/internal/model"
	"github.com/shriharshan/incident-commander/pkg/anthropic"
)

// maxAlternatives caps how many lower-ranked candidates the verdict keeps.
const maxAlternatives = 3

// Decider synthesizes a root-cause hypothesis from aggregated evidence. The
// narrative comes from the reasoning step when available, but confidence is
// always bounded by a deterministic ceiling: the evidence coverage ratio. A
// reasoning failure degrades to a deterministic narrative, never to an error.
type Decider struct {
	ai  anthropic.Client
	cfg config.PipelineConfig
	ai2 config.AnthropicConfig
}

// NewDecider returns a Decider. The anthropic client may be nil, in which
// case every verdict uses the deterministic narrative.
func NewDecider(ai anthropic.Client, pipeline config.PipelineConfig, aiCfg config.AnthropicConfig) *Decider {
	return &Decider{ai: ai, cfg: pipeline, ai2: aiCfg}
}

// decision is the JSON contract of the reasoning step.
type decision struct {
	RootCause          string   `json:"root_cause"`
	Confidence         float64  `json:"confidence"`
	SupportingEvidence []string `json:"supporting_evidence"`
	Caveat             string   `json:"caveat"`
}

// Decide produces the verdict for the given evidence. It never fails: with
// no material evidence it returns an inconclusive hypothesis, and with a
// broken reasoning step it falls back to ranking evidence deterministically.
func (d *Decider) Decide(ctx context.Context, alert model.Alert, ev model.Evidence) model.RootCauseHypothesis {
	material := ev.Material(d.cfg.MaterialityThreshold)
	if ev.Coverage == 0 || len(material) == 0 {
		return inconclusiveHypothesis(ev)
	}

	candidates := rankCandidates(material)
	primary := candidates[0]

	hyp := model.RootCauseHypothesis{
		PrimaryCause:       deterministicNarrative(primary),
		Confidence:         deterministicConfidence(material, primary),
		SupportingEvidence: primary.SourceRefs,
	}

	if d.ai != nil {
		if dec, err := d.reason(ctx, alert, ev); err != nil {
			zap.L().Warn("decide: reasoning step failed, using deterministic verdict", zap.Error(err))
		} else {
			hyp.PrimaryCause = dec.RootCause
			hyp.Confidence = dec.Confidence
			hyp.SupportingEvidence = dec.SupportingEvidence
			hyp.Caveat = dec.Caveat
		}
	}

	// Confidence can never exceed what the completed agents could
	// corroborate, no matter what the reasoning step claims.
	if hyp.Confidence > ev.Coverage {
		hyp.Confidence = ev.Coverage
	}
	if hyp.Confidence < 0 {
		hyp.Confidence = 0
	}

	if hyp.Confidence >= d.cfg.MinConfidence {
		hyp.Verdict = model.VerdictConclusive
	} else {
		hyp.Verdict = model.VerdictLowConfidence
		if hyp.Caveat == "" {
			hyp.Caveat = fmt.Sprintf("Best available explanation at %.0f%% confidence; treat as a lead, not a conclusion.", hyp.Confidence*100)
		}
	}

	for _, alt := range candidates[1:] {
		if len(hyp.Alternatives) >= maxAlternatives {
			break
		}
		hyp.Alternatives = append(hyp.Alternatives, model.AlternativeHypothesis{
			Cause:  alt.Description,
			Weight: alt.Weight,
			Roles:  alt.Roles,
		})
	}

	zap.L().Info("decide: verdict reached",
		zap.String("verdict", string(hyp.Verdict)),
		zap.Float64("confidence", hyp.Confidence),
		zap.Float64("coverage", ev.Coverage),
		zap.Int("alternatives", len(hyp.Alternatives)),
	)
	return hyp
}

func (d *Decider) reason(ctx context.Context, alert model.Alert, ev model.Evidence) (*decision, error) {
	raw, _ := json.MarshalIndent(map[string]any{
		"alert":           alert,
		"evidence_items":  ev.Items,
		"missing_sources": ev.Missing,
		"coverage":        ev.Coverage,
	}, "", "  ")

	temp := 0.1
	resp, err := d.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       d.ai2.Model,
		MaxTokens:   int64(d.ai2.MaxTokens),
		System:      decideSystemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: string(raw)}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, &model.ReasoningUnavailableError{Err: err}
	}
	resp.Usage.LogCost(d.ai2.Model, "decide")

	var dec decision
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &dec); err != nil {
		return nil, &model.ReasoningUnavailableError{Err: eris.Wrap(err, "decide: parse verdict")}
	}
	if strings.TrimSpace(dec.RootCause) == "" {
		return nil, &model.ReasoningUnavailableError{Err: eris.New("decide: empty root cause")}
	}
	return &dec, nil
}

// rankCandidates orders material items by supporting weight, breaking ties
// by the number of corroborating roles, then the more recent timestamp, then
// the signature for a stable total order.
func rankCandidates(material []model.MergedItem) []model.MergedItem {
	ranked := make([]model.MergedItem, len(material))
	copy(ranked, material)
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		if len(a.Roles) != len(b.Roles) {
			return len(a.Roles) > len(b.Roles)
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.Signature < b.Signature
	})
	return ranked
}

// deterministicConfidence scores a verdict without the reasoning step: a
// quarter point per distinct corroborating role plus a bonus for the primary
// candidate's own weight.
func deterministicConfidence(material []model.MergedItem, primary model.MergedItem) float64 {
	conf := 0.25 * float64(model.DistinctRoles(material))
	bonus := primary.Weight / 4
	if bonus > 0.25 {
		bonus = 0.25
	}
	conf += bonus
	if conf > 1 {
		conf = 1
	}
	return conf
}

func deterministicNarrative(primary model.MergedItem) string {
	roles := make([]string, len(primary.Roles))
	for i, r := range primary.Roles {
		roles[i] = string(r)
	}
	return fmt.Sprintf("%s (corroborated by %s)", primary.Description, strings.Join(roles, ", "))
}

func inconclusiveHypothesis(ev model.Evidence) model.RootCauseHypothesis {
	caveat := "No material evidence was collected in the incident window."
	if len(ev.Missing) > 0 {
		names := make([]string, len(ev.Missing))
		for i, m := range ev.Missing {
			names[i] = string(m.Role)
		}
		caveat = fmt.Sprintf("No material evidence; sources did not report: %s.", strings.Join(names, ", "))
	}
	return model.RootCauseHypothesis{
		PrimaryCause: "Root cause could not be determined from the available evidence.",
		Confidence:   0,
		Verdict:      model.VerdictInconclusive,
		Caveat:       caveat,
	}
}
