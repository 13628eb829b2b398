package review

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kindred/pkg/domain"
)

func TestMemoryQueue(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	flags := []Flag{
		{RecordID: domain.PatientID(uuid.New()), Reason: ReasonCatchAllOverflow, FlaggedAt: time.Now()},
		{RecordID: domain.PatientID(uuid.New()), Reason: ReasonCatchAllOverflow, FlaggedAt: time.Now()},
	}
	require.NoError(t, q.Push(ctx, flags))

	t.Run("pending preserves order", func(t *testing.T) {
		got, err := q.Pending(ctx, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, flags[0].RecordID, got[0].RecordID)
	})

	t.Run("limit truncates", func(t *testing.T) {
		got, err := q.Pending(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("pending does not consume", func(t *testing.T) {
		got, err := q.Pending(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}
