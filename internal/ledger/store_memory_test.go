package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"kindred/internal/match"
	"kindred/pkg/domain"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) newPair() domain.PairKey {
	pair, err := domain.NewPairKey(domain.PatientID(uuid.New()), domain.PatientID(uuid.New()))
	require.NoError(s.T(), err)
	return pair
}

func (s *InMemoryStoreSuite) newCandidate(pair domain.PairKey) *MatchCandidate {
	return NewCandidate(pair, uuid.New(), []match.FieldResult{
		{Attribute: match.AttributeName, Score: 100, Matched: true, Reason: match.ReasonExact},
	}, 85, match.ConfidenceMedium, time.Now())
}

func (s *InMemoryStoreSuite) TestCommitAndFind() {
	pair := s.newPair()
	c := s.newCandidate(pair)

	result, err := s.store.CommitBucket(s.ctx, []*MatchCandidate{c}, match.RerunSkip)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), CommitResult{Inserted: 1}, result)

	found, err := s.store.FindActiveByPair(s.ctx, pair)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), c.ID, found.ID)
	assert.Equal(s.T(), StatusPendingReview, found.Status)
}

func (s *InMemoryStoreSuite) TestFindNotFound() {
	_, err := s.store.FindActiveByPair(s.ctx, s.newPair())
	assert.ErrorIs(s.T(), err, ErrNotFound)

	_, err = s.store.FindByID(s.ctx, uuid.New())
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *InMemoryStoreSuite) TestRecommitSamePairIsIdempotent() {
	pair := s.newPair()
	first := s.newCandidate(pair)

	_, err := s.store.CommitBucket(s.ctx, []*MatchCandidate{first}, match.RerunSkip)
	require.NoError(s.T(), err)

	// A second run scores the same pair again; the deterministic score means
	// the new candidate is redundant and must be skipped.
	second := s.newCandidate(pair)
	result, err := s.store.CommitBucket(s.ctx, []*MatchCandidate{second}, match.RerunSkip)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), CommitResult{Skipped: 1}, result)

	all, err := s.store.List(s.ctx, ListFilter{})
	require.NoError(s.T(), err)
	assert.Len(s.T(), all, 1)
	assert.Equal(s.T(), first.ID, all[0].ID)
}

func (s *InMemoryStoreSuite) TestRerunSkipPreservesDisposition() {
	pair := s.newPair()
	first := s.newCandidate(pair)
	_, err := s.store.CommitBucket(s.ctx, []*MatchCandidate{first}, match.RerunSkip)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.store.UpdateStatus(s.ctx, first.ID, StatusPendingReview, StatusNotDuplicate, time.Now()))

	result, err := s.store.CommitBucket(s.ctx, []*MatchCandidate{s.newCandidate(pair)}, match.RerunSkip)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), CommitResult{Skipped: 1}, result)

	found, err := s.store.FindActiveByPair(s.ctx, pair)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), StatusNotDuplicate, found.Status)
}

func (s *InMemoryStoreSuite) TestRerunSupersedeKeepsAuditTrail() {
	pair := s.newPair()
	first := s.newCandidate(pair)
	_, err := s.store.CommitBucket(s.ctx, []*MatchCandidate{first}, match.RerunSupersede)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.store.UpdateStatus(s.ctx, first.ID, StatusPendingReview, StatusConfirmedDuplicate, time.Now()))

	second := s.newCandidate(pair)
	result, err := s.store.CommitBucket(s.ctx, []*MatchCandidate{second}, match.RerunSupersede)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), CommitResult{Superseded: 1}, result)

	// The new pending entry is active and linked to the old one.
	active, err := s.store.FindActiveByPair(s.ctx, pair)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), second.ID, active.ID)
	assert.Equal(s.T(), first.ID, active.Supersedes)
	assert.Equal(s.T(), StatusPendingReview, active.Status)

	// The prior disposition is retained, untouched.
	old, err := s.store.FindByID(s.ctx, first.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), old.Superseded)
	assert.Equal(s.T(), StatusConfirmedDuplicate, old.Status)

	// Default listing hides superseded entries; the audit view includes them.
	activeOnly, err := s.store.List(s.ctx, ListFilter{})
	require.NoError(s.T(), err)
	assert.Len(s.T(), activeOnly, 1)
	withHistory, err := s.store.List(s.ctx, ListFilter{IncludeSuperseded: true})
	require.NoError(s.T(), err)
	assert.Len(s.T(), withHistory, 2)
}

func (s *InMemoryStoreSuite) TestSupersedePolicyLeavesPendingAlone() {
	pair := s.newPair()
	first := s.newCandidate(pair)
	_, err := s.store.CommitBucket(s.ctx, []*MatchCandidate{first}, match.RerunSupersede)
	require.NoError(s.T(), err)

	result, err := s.store.CommitBucket(s.ctx, []*MatchCandidate{s.newCandidate(pair)}, match.RerunSupersede)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), CommitResult{Skipped: 1}, result)
}

func (s *InMemoryStoreSuite) TestUpdateStatusGuardsConcurrentChange() {
	pair := s.newPair()
	c := s.newCandidate(pair)
	_, err := s.store.CommitBucket(s.ctx, []*MatchCandidate{c}, match.RerunSkip)
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.store.UpdateStatus(s.ctx, c.ID, StatusPendingReview, StatusConfirmedDuplicate, time.Now()))

	// A second reviewer raced on the same candidate with a stale status.
	err = s.store.UpdateStatus(s.ctx, c.ID, StatusPendingReview, StatusNotDuplicate, time.Now())
	require.Error(s.T(), err)
}

func (s *InMemoryStoreSuite) TestRunInTx() {
	pair := s.newPair()
	c := s.newCandidate(pair)
	_, err := s.store.CommitBucket(s.ctx, []*MatchCandidate{c}, match.RerunSkip)
	require.NoError(s.T(), err)

	err = s.store.RunInTx(s.ctx, func(ctx context.Context) error {
		got, err := s.store.FindByID(ctx, c.ID)
		if err != nil {
			return err
		}
		return s.store.UpdateStatus(ctx, got.ID, got.Status, StatusConfirmedDuplicate, time.Now())
	})
	require.NoError(s.T(), err)

	got, err := s.store.FindByID(s.ctx, c.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), StatusConfirmedDuplicate, got.Status)

	cancelled, cancel := context.WithCancel(s.ctx)
	cancel()
	err = s.store.RunInTx(cancelled, func(context.Context) error {
		s.T().Fatal("must not run under a cancelled context")
		return nil
	})
	assert.ErrorIs(s.T(), err, context.Canceled)
}

func (s *InMemoryStoreSuite) TestListFilters() {
	runA := uuid.New()
	runB := uuid.New()

	high := s.newCandidate(s.newPair())
	high.Confidence = match.ConfidenceHigh
	high.RunID = runA
	medium := s.newCandidate(s.newPair())
	medium.RunID = runB

	_, err := s.store.CommitBucket(s.ctx, []*MatchCandidate{high, medium}, match.RerunSkip)
	require.NoError(s.T(), err)

	byConfidence, err := s.store.List(s.ctx, ListFilter{Confidence: match.ConfidenceHigh})
	require.NoError(s.T(), err)
	require.Len(s.T(), byConfidence, 1)
	assert.Equal(s.T(), high.ID, byConfidence[0].ID)

	byRun, err := s.store.List(s.ctx, ListFilter{RunID: runB})
	require.NoError(s.T(), err)
	require.Len(s.T(), byRun, 1)
	assert.Equal(s.T(), medium.ID, byRun[0].ID)

	limited, err := s.store.List(s.ctx, ListFilter{Limit: 1})
	require.NoError(s.T(), err)
	assert.Len(s.T(), limited, 1)
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}
