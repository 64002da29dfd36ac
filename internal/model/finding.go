package model

import "time"

// FindingStatus is the terminal state of one agent's investigation.
type FindingStatus string

const (
	FindingCompleted FindingStatus = "completed"
	FindingTimedOut  FindingStatus = "timed_out"
	FindingFailed    FindingStatus = "failed"
	FindingSkipped   FindingStatus = "skipped"
)

// EvidenceItem is a single typed observation extracted from raw source data.
// Signature is the dedup key: two agents surfacing the same underlying signal
// produce items with the same signature.
type EvidenceItem struct {
	Signature   string    `json:"signature"`
	Description string    `json:"description"`
	SourceRef   string    `json:"source_ref"`
	Weight      float64   `json:"weight"`
	Timestamp   time.Time `json:"timestamp"`
}

// Finding is one agent's structured, time-bounded result. Only a completed
// finding may carry evidence items; every degraded status implies an empty
// item list.
type Finding struct {
	Role     AgentRole      `json:"role"`
	Status   FindingStatus  `json:"status"`
	Items    []EvidenceItem `json:"items,omitempty"`
	Summary  string         `json:"summary,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// Degraded reports whether the finding contributes nothing to evidence.
func (f Finding) Degraded() bool {
	return f.Status != FindingCompleted
}
