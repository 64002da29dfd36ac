package model

// RecommendedAction is a suggested remediation step. Priority is a strict
// total order starting at 1; no two actions in a report share a priority.
type RecommendedAction struct {
	Description string  `json:"description"`
	Priority    int     `json:"priority"`
	Rationale   string  `json:"rationale"`
	Weight      float64 `json:"weight,omitempty"`
}
