// Package audit emits append-only events for run lifecycle and candidate
// dispositions. Keep events transport-agnostic so sinks can fan out.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action names what happened.
type Action string

const (
	ActionRunStarted        Action = "run_started"
	ActionRunCompleted      Action = "run_completed"
	ActionRunFailed         Action = "run_failed"
	ActionCandidateDisposed Action = "candidate_disposed"
	ActionRecordsFlagged    Action = "records_flagged"
)

// Event is one audit entry. Pair and Candidate are set for disposition
// events; RunID for run lifecycle events.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	RunID     uuid.UUID `json:"run_id,omitempty"`
	Candidate uuid.UUID `json:"candidate_id,omitempty"`
	Pair      string    `json:"pair,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}
