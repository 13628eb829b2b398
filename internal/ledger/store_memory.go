package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"kindred/internal/match"
	"kindred/pkg/domain"
	dErrors "kindred/pkg/domain-errors"
)

// InMemoryStore keeps the ledger in process memory. Used by unit tests and
// single-node deployments without Postgres.
type InMemoryStore struct {
	mu       sync.RWMutex
	txMu     sync.Mutex
	byID     map[uuid.UUID]*MatchCandidate
	activeBy map[string]uuid.UUID // canonical pair -> active entry
}

// NewInMemoryStore constructs an empty in-memory ledger.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:     make(map[uuid.UUID]*MatchCandidate),
		activeBy: make(map[string]uuid.UUID),
	}
}

// CommitBucket applies the insert-if-absent discipline under one lock, so the
// bucket is all-or-nothing with respect to concurrent readers and writers.
func (s *InMemoryStore) CommitBucket(ctx context.Context, candidates []*MatchCandidate, policy match.RerunPolicy) (CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return CommitResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var result CommitResult
	for _, c := range candidates {
		existingID, ok := s.activeBy[c.Pair.String()]
		if !ok {
			clone := *c
			s.byID[clone.ID] = &clone
			s.activeBy[clone.Pair.String()] = clone.ID
			result.Inserted++
			continue
		}

		existing := s.byID[existingID]
		if !existing.Disposed() || policy == match.RerunSkip {
			result.Skipped++
			continue
		}

		// Supersede: retire the disposed entry without touching its status
		// and insert a fresh pending candidate linked to it.
		existing.Superseded = true
		clone := *c
		clone.Supersedes = existing.ID
		s.byID[clone.ID] = &clone
		s.activeBy[clone.Pair.String()] = clone.ID
		result.Superseded++
	}
	return result, nil
}

func (s *InMemoryStore) FindActiveByPair(_ context.Context, pair domain.PairKey) (*MatchCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.activeBy[pair.String()]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *s.byID[id]
	return &clone, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*MatchCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *InMemoryStore) List(_ context.Context, filter ListFilter) ([]*MatchCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*MatchCandidate
	for _, c := range s.byID {
		if !filter.IncludeSuperseded && c.Superseded {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.Confidence != "" && c.Confidence != filter.Confidence {
			continue
		}
		if filter.RunID != uuid.Nil && c.RunID != filter.RunID {
			continue
		}
		clone := *c
		out = append(out, &clone)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if c.Status != from {
		return dErrors.Newf(dErrors.CodeConflict, "candidate status changed concurrently: expected %s, found %s", from, c.Status)
	}
	c.Status = to
	c.UpdatedAt = now
	return nil
}

// RunInTx serializes fn against concurrent RunInTx callers. The store has no
// rollback, so fn's writes stand even when it returns an error; callers keep
// read-check-write sequences consistent by running them here.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

var _ Store = (*InMemoryStore)(nil)
