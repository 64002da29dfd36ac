package model

import (
	"errors"
	"fmt"
)

// ErrInvalidAlert marks a malformed trigger payload. It is the only error
// that aborts an investigation; everything else degrades coverage instead.
var ErrInvalidAlert = errors.New("invalid alert")

// SourceUnavailableError wraps a failure from an evidence-source collaborator
// (log search, metric feed, deployment history). It is recovered locally by
// the owning investigator as a failed finding and never propagates further.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// ReasoningUnavailableError wraps a failure from the reasoning-step
// collaborator (model API error or an unparseable response).
type ReasoningUnavailableError struct {
	Err error
}

func (e *ReasoningUnavailableError) Error() string {
	return fmt.Sprintf("reasoning unavailable: %v", e.Err)
}

func (e *ReasoningUnavailableError) Unwrap() error {
	return e.Err
}
