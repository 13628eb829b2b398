//go:build integration

package review

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"kindred/pkg/domain"
	"kindred/pkg/testutil/containers"
)

type RedisQueueSuite struct {
	suite.Suite
	ctx   context.Context
	redis *containers.RedisContainer
	queue *RedisQueue
}

func TestRedisQueueSuite(t *testing.T) {
	suite.Run(t, new(RedisQueueSuite))
}

func (s *RedisQueueSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
	s.queue = NewRedisQueue(s.redis.Client)
}

func (s *RedisQueueSuite) SetupTest() {
	require.NoError(s.T(), s.redis.FlushAll(s.ctx))
}

func (s *RedisQueueSuite) flag(id string) Flag {
	s.T().Helper()
	recordID, err := domain.ParsePatientID(id)
	require.NoError(s.T(), err)
	return Flag{
		RecordID:  recordID,
		Reason:    ReasonCatchAllOverflow,
		FlaggedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func (s *RedisQueueSuite) TestPushAndPending() {
	first := s.flag("11111111-1111-1111-1111-111111111111")
	second := s.flag("22222222-2222-2222-2222-222222222222")
	require.NoError(s.T(), s.queue.Push(s.ctx, []Flag{first, second}))

	flags, err := s.queue.Pending(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), flags, 2)
	assert.Equal(s.T(), first, flags[0])
	assert.Equal(s.T(), second, flags[1])
}

func (s *RedisQueueSuite) TestPendingDoesNotConsume() {
	require.NoError(s.T(), s.queue.Push(s.ctx, []Flag{s.flag("11111111-1111-1111-1111-111111111111")}))

	for range 2 {
		flags, err := s.queue.Pending(s.ctx, 10)
		require.NoError(s.T(), err)
		assert.Len(s.T(), flags, 1)
	}
}

func (s *RedisQueueSuite) TestPendingHonorsLimit() {
	var flags []Flag
	flags = append(flags,
		s.flag("11111111-1111-1111-1111-111111111111"),
		s.flag("22222222-2222-2222-2222-222222222222"),
		s.flag("33333333-3333-3333-3333-333333333333"),
	)
	require.NoError(s.T(), s.queue.Push(s.ctx, flags))

	got, err := s.queue.Pending(s.ctx, 2)
	require.NoError(s.T(), err)
	assert.Len(s.T(), got, 2)
}

func (s *RedisQueueSuite) TestPushEmptyIsNoop() {
	require.NoError(s.T(), s.queue.Push(s.ctx, nil))

	got, err := s.queue.Pending(s.ctx, 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), got)
}
