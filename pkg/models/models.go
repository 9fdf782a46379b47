package models

import "time"

// Mode selects whether removals are actually performed.
type Mode string

const (
	ModeDryRun Mode = "dry-run"
	ModeLive   Mode = "live"
)

// Phase is the orchestrator's current position in the run state machine.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseAuthenticating       Phase = "authenticating"
	PhaseScanning             Phase = "scanning"
	PhaseReviewing            Phase = "reviewing"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseRemoving             Phase = "removing"
	PhaseReporting            Phase = "reporting"
	PhaseCompleted            Phase = "completed"
	PhaseAborted              Phase = "aborted"
)

// FollowerRecord is a single follower as seen in the follower list.
// Immutable once created; ProfileID is the stable dedup key within a run.
type FollowerRecord struct {
	ProfileID    string    `json:"profile_id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Classification is the classifier's verdict for a username. Derived from
// the username and pattern list only, never stored independently.
type Classification struct {
	SuspectedBot   bool   `json:"suspected_bot"`
	MatchedPattern string `json:"matched_pattern,omitempty"`
}

// ClassifiedRecord is a follower with its classification attached.
type ClassifiedRecord struct {
	FollowerRecord
	Classification Classification `json:"classification"`
}

// OutcomeKind enumerates what happened to a candidate.
type OutcomeKind string

const (
	OutcomeRemoved    OutcomeKind = "removed"
	OutcomeFailed     OutcomeKind = "failed"
	OutcomeSkipped    OutcomeKind = "skipped"
	OutcomeDryRunOnly OutcomeKind = "dry_run_only"
)

// Outcome is the result of acting (or deciding not to act) on a candidate.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Reason string      `json:"reason,omitempty"`
}

// Skip reasons recorded by the orchestrator.
const (
	SkipReasonBudgetExhausted = "budget exhausted"
	SkipReasonCircuitBreaker  = "circuit breaker tripped"
	SkipReasonDeclined        = "operator declined"
	SkipReasonCancelled       = "run cancelled"
)

// RunState tracks the progress of a single cleanup run. It is owned
// exclusively by the orchestrator; nothing else mutates it.
type RunState struct {
	RunID        string `json:"run_id"`
	TargetHandle string `json:"target_handle"`
	Mode         Mode   `json:"mode"`
	Limit        int    `json:"limit"`
	DailyCap     int    `json:"daily_cap"`

	ProcessedCount int `json:"processed_count"`
	RemovedCount   int `json:"removed_count"`
	FailedCount    int `json:"failed_count"`
	SkippedCount   int `json:"skipped_count"`
	DryRunCount    int `json:"dry_run_count"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	Phase     Phase     `json:"phase"`
}

// Budget returns the maximum number of removals this run may perform.
func (s *RunState) Budget() int {
	if s.Limit < s.DailyCap {
		return s.Limit
	}
	return s.DailyCap
}
