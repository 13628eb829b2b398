package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kindred/internal/match"
	"kindred/pkg/domain"
	dErrors "kindred/pkg/domain-errors"
	"kindred/pkg/requestcontext"
)

func newDisposeFixture(t *testing.T) (*Service, *InMemoryStore, *MatchCandidate) {
	t.Helper()
	store := NewInMemoryStore()

	pair, err := domain.NewPairKey(domain.PatientID(uuid.New()), domain.PatientID(uuid.New()))
	require.NoError(t, err)
	c := NewCandidate(pair, uuid.New(), []match.FieldResult{
		{Attribute: match.AttributeName, Score: 100, Matched: true, Reason: match.ReasonExact},
	}, 85, match.ConfidenceMedium, time.Now())
	_, err = store.CommitBucket(context.Background(), []*MatchCandidate{c}, match.RerunSkip)
	require.NoError(t, err)

	return NewService(store, nil, nil), store, c
}

func TestServiceDispose(t *testing.T) {
	svc, store, c := newDisposeFixture(t)

	decidedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), decidedAt)

	got, err := svc.Dispose(ctx, c.ID, StatusConfirmedDuplicate, "dr.rao")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmedDuplicate, got.Status)
	assert.Equal(t, decidedAt, got.UpdatedAt)

	stored, err := store.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmedDuplicate, stored.Status)
	assert.Equal(t, decidedAt, stored.UpdatedAt)
}

func TestServiceDisposeInvalidTransition(t *testing.T) {
	svc, store, c := newDisposeFixture(t)
	ctx := context.Background()

	_, err := svc.Dispose(ctx, c.ID, StatusConfirmedDuplicate, "dr.rao")
	require.NoError(t, err)

	// confirmed_duplicate advances to merged only, never sideways.
	_, err = svc.Dispose(ctx, c.ID, StatusNotDuplicate, "dr.rao")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	stored, err := store.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmedDuplicate, stored.Status)
}

func TestServiceDisposeNotFound(t *testing.T) {
	svc, _, _ := newDisposeFixture(t)

	_, err := svc.Dispose(context.Background(), uuid.New(), StatusNotDuplicate, "dr.rao")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
