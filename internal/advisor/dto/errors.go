package dto

import (
	"fmt"
	"strings"
)

// IncompleteSnapshotError reports missing or non-numeric fundamentals fields.
// The risk scorer never substitutes defaults; the caller decides whether to
// retry with a stale snapshot.
type IncompleteSnapshotError struct {
	Ticker  string
	Missing []string
}

func (e *IncompleteSnapshotError) Error() string {
	return fmt.Sprintf("incomplete fundamentals snapshot for %s: missing %s",
		e.Ticker, strings.Join(e.Missing, ", "))
}

// SignalIngestionError reports a raw-event batch whose malformed-event rate
// exceeded the configured threshold. Events emitted before the failure remain
// valid.
type SignalIngestionError struct {
	Ticker    string
	Total     int
	Skipped   int
	Threshold float64
}

func (e *SignalIngestionError) Error() string {
	return fmt.Sprintf("signal ingestion failed for %s: %d of %d events malformed (threshold %.0f%%)",
		e.Ticker, e.Skipped, e.Total, e.Threshold*100)
}

// MissingContextError reports a research generation precondition failure.
// It is raised before any external call is made and is not retry-eligible.
type MissingContextError struct {
	Ticker  string
	Missing []string
}

func (e *MissingContextError) Error() string {
	return fmt.Sprintf("missing research context for %s: %s",
		e.Ticker, strings.Join(e.Missing, ", "))
}

// GenerationTimeoutError reports a completion call that exceeded the
// wall-clock budget. Retried up to the attempt budget, then degraded.
type GenerationTimeoutError struct {
	Ticker  string
	Attempt int
}

func (e *GenerationTimeoutError) Error() string {
	return fmt.Sprintf("research generation timed out for %s on attempt %d", e.Ticker, e.Attempt)
}

// GenerationTransportError reports a transport-level completion failure.
type GenerationTransportError struct {
	Ticker  string
	Attempt int
	Cause   error
}

func (e *GenerationTransportError) Error() string {
	return fmt.Sprintf("research generation transport failure for %s on attempt %d: %v",
		e.Ticker, e.Attempt, e.Cause)
}

func (e *GenerationTransportError) Unwrap() error { return e.Cause }

// ValidationError reports a completion response that failed schema validation.
// The reason is fed back into the next prompt attempt as a correction.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("response schema validation failed: %s", e.Reason)
}

// CandidateExcludedError is internal to the recommendation engine; it is
// recorded in run diagnostics and never propagated to callers.
type CandidateExcludedError struct {
	Ticker string
	Reason string
}

func (e *CandidateExcludedError) Error() string {
	return fmt.Sprintf("candidate %s excluded: %s", e.Ticker, e.Reason)
}
