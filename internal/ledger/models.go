// Package ledger persists the outcome of comparisons: candidate pairs with
// their score, classification, and disposition state. Entries are append-only
// from the engine's point of view; only the disposition transition mutates
// them, and prior dispositions are never overwritten.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"kindred/internal/match"
	"kindred/pkg/domain"
	dErrors "kindred/pkg/domain-errors"
)

// Status is the disposition state of a match candidate.
type Status string

const (
	// StatusPendingReview is the initial state of every new candidate.
	StatusPendingReview Status = "pending_review"
	// StatusConfirmedDuplicate is a terminal human/automated disposition,
	// except that a completed upstream merge may still be recorded.
	StatusConfirmedDuplicate Status = "confirmed_duplicate"
	// StatusNotDuplicate is terminal.
	StatusNotDuplicate Status = "not_duplicate"
	// StatusMerged is terminal and only reachable from confirmed_duplicate.
	StatusMerged Status = "merged"
)

// transitions is the one-directional state machine. A status never reverts.
var transitions = map[Status][]Status{
	StatusPendingReview:      {StatusConfirmedDuplicate, StatusNotDuplicate},
	StatusConfirmedDuplicate: {StatusMerged},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingReview, StatusConfirmedDuplicate, StatusNotDuplicate, StatusMerged:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// MatchCandidate is a plausible duplicate pair awaiting disposition. The pair
// is always stored canonically ordered, so one unordered pair maps to at most
// one active entry.
type MatchCandidate struct {
	ID             uuid.UUID
	Pair           domain.PairKey
	RunID          uuid.UUID
	FieldResults   []match.FieldResult
	CompositeScore float64
	Confidence     match.ConfidenceLevel
	Status         Status
	// Supersedes links to the candidate this entry replaced under the
	// supersede rerun policy. Zero when the entry is first of its pair.
	Supersedes uuid.UUID
	// Superseded marks entries replaced by a newer candidate for the same
	// pair. Superseded entries are retained for the audit trail.
	Superseded bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewCandidate builds a pending candidate for a scored pair.
func NewCandidate(pair domain.PairKey, runID uuid.UUID, results []match.FieldResult, score float64, level match.ConfidenceLevel, now time.Time) *MatchCandidate {
	return &MatchCandidate{
		ID:             uuid.New(),
		Pair:           pair,
		RunID:          runID,
		FieldResults:   results,
		CompositeScore: score,
		Confidence:     level,
		Status:         StatusPendingReview,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Transition applies a disposition, enforcing the state machine.
func (c *MatchCandidate) Transition(next Status, now time.Time) error {
	if !next.Valid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown status %q", next)
	}
	if !c.Status.CanTransition(next) {
		return dErrors.Newf(dErrors.CodeConflict, "cannot transition candidate from %s to %s", c.Status, next)
	}
	c.Status = next
	c.UpdatedAt = now
	return nil
}

// Disposed reports whether the candidate carries a human or automated
// decision; a re-run must not disturb it.
func (c *MatchCandidate) Disposed() bool {
	return c.Status != StatusPendingReview
}
