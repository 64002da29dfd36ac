package investigation

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/shriharshan/incident-commander/internal/model"
)

// Aggregate merges all findings into a single evidence set. Items sharing a
// normalized signature collapse into one merged item tagged with every role
// that surfaced it; degraded findings become missing-source records. The
// output is fully order-independent: any permutation of the findings slice
// yields identical evidence.
func Aggregate(findings []model.Finding) model.Evidence {
	groups := make(map[string]*model.MergedItem)
	completed := 0
	var missing []model.MissingSource

	for _, f := range findings {
		if f.Degraded() {
			missing = append(missing, model.MissingSource{
				Role:   f.Role,
				Status: f.Status,
				Reason: f.Error,
			})
			continue
		}
		completed++
		for _, it := range f.Items {
			key := normalizeSignature(it.Signature, it.Description)
			g, ok := groups[key]
			if !ok {
				groups[key] = &model.MergedItem{
					Signature:   key,
					Description: it.Description,
					SourceRefs:  appendUnique(nil, it.SourceRef),
					Weight:      it.Weight,
					Timestamp:   it.Timestamp,
					Roles:       []model.AgentRole{f.Role},
				}
				continue
			}
			mergeItem(g, it, f.Role)
		}
	}

	items := make([]model.MergedItem, 0, len(groups))
	for _, g := range groups {
		sort.Slice(g.SourceRefs, func(i, j int) bool { return g.SourceRefs[i] < g.SourceRefs[j] })
		sortRoles(g.Roles)
		items = append(items, *g)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Weight != items[j].Weight {
			return items[i].Weight > items[j].Weight
		}
		if items[i].Signature != items[j].Signature {
			return items[i].Signature < items[j].Signature
		}
		return items[i].Timestamp.Before(items[j].Timestamp)
	})
	sort.Slice(missing, func(i, j int) bool { return missing[i].Role < missing[j].Role })

	coverage := 0.0
	if len(findings) > 0 {
		coverage = float64(completed) / float64(len(findings))
	}

	zap.L().Info("aggregate: evidence merged",
		zap.Int("items", len(items)),
		zap.Int("missing_sources", len(missing)),
		zap.Float64("coverage", coverage),
	)

	return model.Evidence{Items: items, Missing: missing, Coverage: coverage}
}

// mergeItem folds it into g with order-independent rules: the weight is the
// maximum, the timestamp the earliest, and the description follows the
// heaviest contributing item (ties broken lexicographically).
func mergeItem(g *model.MergedItem, it model.EvidenceItem, role model.AgentRole) {
	if it.Weight > g.Weight || (it.Weight == g.Weight && it.Description < g.Description) {
		g.Description = it.Description
	}
	if it.Weight > g.Weight {
		g.Weight = it.Weight
	}
	if !it.Timestamp.IsZero() && (g.Timestamp.IsZero() || it.Timestamp.Before(g.Timestamp)) {
		g.Timestamp = it.Timestamp
	}
	g.SourceRefs = appendUnique(g.SourceRefs, it.SourceRef)
	hasRole := false
	for _, r := range g.Roles {
		if r == role {
			hasRole = true
			break
		}
	}
	if !hasRole {
		g.Roles = append(g.Roles, role)
	}
}

// normalizeSignature produces the dedup key for an evidence item. An item
// with no signature falls back to its normalized description.
func normalizeSignature(signature, description string) string {
	key := strings.ToLower(strings.TrimSpace(signature))
	if key == "" {
		key = strings.ToLower(strings.TrimSpace(description))
		key = strings.ReplaceAll(key, " ", "_")
	}
	return key
}

func appendUnique(refs []string, ref string) []string {
	if ref == "" {
		return refs
	}
	for _, r := range refs {
		if r == ref {
			return refs
		}
	}
	return append(refs, ref)
}

func sortRoles(roles []model.AgentRole) {
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
}
