package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"kindred/internal/match"
	"kindred/pkg/domain"
	"kindred/pkg/platform/sentinel"
)

// ErrNotFound is returned when no candidate exists for the given key.
var ErrNotFound = sentinel.ErrNotFound

// ListFilter narrows List results. Zero values mean no constraint.
type ListFilter struct {
	Status     Status
	Confidence match.ConfidenceLevel
	RunID      uuid.UUID
	// IncludeSuperseded also returns entries replaced under the supersede
	// rerun policy; by default only active entries are listed.
	IncludeSuperseded bool
	Limit             int
}

// CommitResult summarizes what a bucket commit actually wrote.
type CommitResult struct {
	Inserted   int
	Skipped    int
	Superseded int
}

// Store is the persistence port for the match review ledger. Implementations
// must make CommitBucket atomic: a bucket's candidates are either fully
// committed or not committed at all, and the insert discipline is
// insert-if-absent keyed on the canonical pair, never a blind insert.
type Store interface {
	// CommitBucket writes a bucket's worth of candidates under the given
	// rerun policy. Existing pending entries for a pair are left as-is
	// (scores are deterministic, so they are equal anyway). Existing
	// disposed entries are skipped under RerunSkip, or superseded by a new
	// pending entry under RerunSupersede.
	CommitBucket(ctx context.Context, candidates []*MatchCandidate, policy match.RerunPolicy) (CommitResult, error)

	// FindActiveByPair returns the active (non-superseded) candidate for a
	// canonical pair, or ErrNotFound.
	FindActiveByPair(ctx context.Context, pair domain.PairKey) (*MatchCandidate, error)

	// FindByID returns a candidate by its entry ID, or ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*MatchCandidate, error)

	// List returns candidates matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*MatchCandidate, error)

	// UpdateStatus persists a disposition transition validated by the
	// caller against the state machine. It must reject concurrent
	// lost-update races by comparing the expected current status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, now time.Time) error

	// RunInTx executes fn so that every store call made with the context it
	// receives shares one atomic unit. Implementations may wrap a database
	// transaction or, in-memory, a coarse lock. fn returning an error
	// discards the unit's writes.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
