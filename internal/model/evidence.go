package model

import "time"

// MergedItem is an evidence item after aggregation, tagged with every agent
// role that independently surfaced it. Weight is the maximum reported weight;
// Timestamp is the earliest observation.
type MergedItem struct {
	Signature   string      `json:"signature"`
	Description string      `json:"description"`
	SourceRefs  []string    `json:"source_refs"`
	Weight      float64     `json:"weight"`
	Timestamp   time.Time   `json:"timestamp"`
	Roles       []AgentRole `json:"roles"`
}

// MissingSource records an agent that did not complete, so partial evidence
// is never silently hidden from the decider or the final report.
type MissingSource struct {
	Role   AgentRole     `json:"role"`
	Status FindingStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// Evidence is the deduplicated union of all findings. Coverage is the
// fraction of planned agents that completed, in [0, 1].
type Evidence struct {
	Items    []MergedItem    `json:"items"`
	Missing  []MissingSource `json:"missing,omitempty"`
	Coverage float64         `json:"coverage"`
}

// Material returns the items whose weight meets the given threshold.
func (e Evidence) Material(threshold float64) []MergedItem {
	var out []MergedItem
	for _, it := range e.Items {
		if it.Weight >= threshold {
			out = append(out, it)
		}
	}
	return out
}

// DistinctRoles returns how many distinct agent roles contributed to the
// given items.
func DistinctRoles(items []MergedItem) int {
	seen := make(map[AgentRole]struct{})
	for _, it := range items {
		for _, r := range it.Roles {
			seen[r] = struct{}{}
		}
	}
	return len(seen)
}
