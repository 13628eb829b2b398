package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kindred/internal/match"
	"kindred/pkg/domain"
	dErrors "kindred/pkg/domain-errors"
)

func testPair(t *testing.T) domain.PairKey {
	t.Helper()
	a := domain.PatientID(uuid.New())
	b := domain.PatientID(uuid.New())
	pair, err := domain.NewPairKey(a, b)
	require.NoError(t, err)
	return pair
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPendingReview, StatusConfirmedDuplicate, true},
		{StatusPendingReview, StatusNotDuplicate, true},
		{StatusPendingReview, StatusMerged, false},
		{StatusConfirmedDuplicate, StatusMerged, true},
		{StatusConfirmedDuplicate, StatusNotDuplicate, false},
		{StatusConfirmedDuplicate, StatusPendingReview, false},
		{StatusNotDuplicate, StatusMerged, false},
		{StatusNotDuplicate, StatusPendingReview, false},
		{StatusMerged, StatusPendingReview, false},
		{StatusMerged, StatusConfirmedDuplicate, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestCandidateTransition(t *testing.T) {
	now := time.Now()
	c := NewCandidate(testPair(t), uuid.New(), nil, 85, match.ConfidenceMedium, now)
	require.Equal(t, StatusPendingReview, c.Status)

	t.Run("full confirm-then-merge path", func(t *testing.T) {
		require.NoError(t, c.Transition(StatusConfirmedDuplicate, now.Add(time.Minute)))
		assert.Equal(t, StatusConfirmedDuplicate, c.Status)
		require.NoError(t, c.Transition(StatusMerged, now.Add(2*time.Minute)))
		assert.Equal(t, StatusMerged, c.Status)
	})

	t.Run("terminal state rejects further transitions", func(t *testing.T) {
		err := c.Transition(StatusPendingReview, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
		assert.Equal(t, StatusMerged, c.Status, "failed transition must not mutate status")
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		fresh := NewCandidate(testPair(t), uuid.New(), nil, 85, match.ConfidenceMedium, now)
		err := fresh.Transition(Status("escalated"), now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
