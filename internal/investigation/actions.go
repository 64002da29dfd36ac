package investigation

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/shriharshan/incident-commander/internal/model"
)

// ActionRule maps cause keywords to a remediation step. Rules are matched
// case-insensitively against hypothesis text.
type ActionRule struct {
	ID       string   `yaml:"id"`
	Keywords []string `yaml:"keywords"`
	Action   string   `yaml:"action"`
}

// actionRuleFile is the YAML root structure.
type actionRuleFile struct {
	Rules []ActionRule `yaml:"rules"`
}

// defaultActionRules covers the common production failure classes when no
// rules file is configured.
var defaultActionRules = []ActionRule{
	{
		ID:       "rollback-deploy",
		Keywords: []string{"deploy", "rollout", "release", "config change"},
		Action:   "Roll back the most recent deployment and verify recovery",
	},
	{
		ID:       "db-connections",
		Keywords: []string{"connection pool", "database", "db connection", "pool exhausted"},
		Action:   "Increase the database connection pool and inspect for leaked connections",
	},
	{
		ID:       "memory",
		Keywords: []string{"memory", "oom", "out of memory", "heap"},
		Action:   "Restart affected instances and raise the memory limit while investigating the leak",
	},
	{
		ID:       "downstream-latency",
		Keywords: []string{"timeout", "latency", "downstream", "upstream dependency"},
		Action:   "Check downstream dependency health and tighten client timeouts with circuit breaking",
	},
	{
		ID:       "capacity",
		Keywords: []string{"throttl", "rate limit", "capacity", "saturation", "queue depth"},
		Action:   "Scale out the service and review rate limits against current traffic",
	},
	{
		ID:       "bad-config",
		Keywords: []string{"configuration", "env var", "flag", "parameter"},
		Action:   "Audit the changed configuration values and restore the last known-good set",
	},
}

// ActionPlanner translates a hypothesis into prioritized remediation steps
// using a keyword rule table.
type ActionPlanner struct {
	rules []ActionRule
}

// NewActionPlanner loads rules from the given YAML path. An empty path or a
// missing file falls back to the built-in defaults.
func NewActionPlanner(path string) (*ActionPlanner, error) {
	if path == "" {
		return &ActionPlanner{rules: defaultActionRules}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Warn("actions: rules file missing, using defaults", zap.String("path", path))
			return &ActionPlanner{rules: defaultActionRules}, nil
		}
		return nil, eris.Wrapf(err, "actions: read rules %s", path)
	}
	var file actionRuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "actions: parse rules %s", path)
	}
	if len(file.Rules) == 0 {
		return &ActionPlanner{rules: defaultActionRules}, nil
	}
	return &ActionPlanner{rules: file.Rules}, nil
}

// PlanActions derives remediation steps from the verdict. Actions addressing
// the primary cause rank above actions addressing alternatives; priorities
// form a strict total order starting at 1. An inconclusive verdict yields a
// single evidence-gathering action, and a hypothesis matching no rule falls
// back to escalation so the report never goes out without a recommendation.
func (p *ActionPlanner) PlanActions(hyp model.RootCauseHypothesis) []model.RecommendedAction {
	if hyp.Verdict == model.VerdictInconclusive {
		return []model.RecommendedAction{{
			Description: "Gather more evidence: extend the lookback window and re-run the investigation",
			Priority:    1,
			Rationale:   "The investigation was inconclusive; no material evidence supported any cause.",
		}}
	}

	var actions []model.RecommendedAction
	seen := make(map[string]struct{})

	add := func(rule ActionRule, weight float64, rationale string) {
		if _, dup := seen[rule.ID]; dup {
			return
		}
		seen[rule.ID] = struct{}{}
		actions = append(actions, model.RecommendedAction{
			Description: rule.Action,
			Rationale:   rationale,
			Weight:      weight,
		})
	}

	// Primary-cause actions first, in rule order.
	primaryText := hyp.PrimaryCause + " " + strings.Join(hyp.SupportingEvidence, " ")
	for _, rule := range p.rules {
		if matchesKeywords(rule.Keywords, primaryText) {
			add(rule, hyp.Confidence, fmt.Sprintf("Addresses the primary cause: %s", hyp.PrimaryCause))
		}
	}

	// Then alternatives, strongest first (alternatives arrive pre-ranked).
	for _, alt := range hyp.Alternatives {
		for _, rule := range p.rules {
			if matchesKeywords(rule.Keywords, alt.Cause) {
				add(rule, alt.Weight, fmt.Sprintf("Addresses an alternative hypothesis: %s", alt.Cause))
			}
		}
	}

	if len(actions) == 0 {
		actions = append(actions, model.RecommendedAction{
			Description: "Escalate to the service owner with the attached evidence",
			Rationale:   fmt.Sprintf("No playbook matched the identified cause: %s", hyp.PrimaryCause),
			Weight:      hyp.Confidence,
		})
	}

	for i := range actions {
		actions[i].Priority = i + 1
	}
	return actions
}

func matchesKeywords(keywords []string, text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
