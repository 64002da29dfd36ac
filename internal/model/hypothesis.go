package model

// VerdictKind classifies how defensible a hypothesis is.
type VerdictKind string

const (
	VerdictConclusive    VerdictKind = "conclusive"
	VerdictLowConfidence VerdictKind = "low_confidence"
	VerdictInconclusive  VerdictKind = "inconclusive"
)

// AlternativeHypothesis is a lower-ranked candidate cause kept alongside the
// primary so a reviewer can see what else the evidence supported.
type AlternativeHypothesis struct {
	Cause  string      `json:"cause"`
	Weight float64     `json:"weight"`
	Roles  []AgentRole `json:"roles"`
}

// RootCauseHypothesis is the decider's verdict. Confidence is hard-capped at
// the evidence coverage ratio, so it can never exceed what the completed
// agents could actually corroborate.
type RootCauseHypothesis struct {
	PrimaryCause       string                  `json:"primary_cause"`
	Confidence         float64                 `json:"confidence"`
	Verdict            VerdictKind             `json:"verdict"`
	SupportingEvidence []string                `json:"supporting_evidence,omitempty"`
	Alternatives       []AlternativeHypothesis `json:"alternatives,omitempty"`
	Caveat             string                  `json:"caveat,omitempty"`
}
