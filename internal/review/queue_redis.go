package review

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// reviewQueueKey is the Redis list all review flags are appended to.
const reviewQueueKey = "kindred:review:flags"

// RedisQueue is the production queue shared across engine instances.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue constructs a Redis-backed review queue.
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

// Push appends flags with a single pipelined RPUSH so a batch of overflow
// flags costs one round trip.
func (q *RedisQueue) Push(ctx context.Context, flags []Flag) error {
	if len(flags) == 0 {
		return nil
	}

	values := make([]any, 0, len(flags))
	for _, f := range flags {
		payload, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("marshal review flag: %w", err)
		}
		values = append(values, payload)
	}
	if err := q.client.RPush(ctx, reviewQueueKey, values...).Err(); err != nil {
		return fmt.Errorf("push review flags: %w", err)
	}
	return nil
}

// Pending reads up to limit flags, oldest first, leaving them queued.
func (q *RedisQueue) Pending(ctx context.Context, limit int) ([]Flag, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	raw, err := q.client.LRange(ctx, reviewQueueKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read review flags: %w", err)
	}

	flags := make([]Flag, 0, len(raw))
	for _, item := range raw {
		var f Flag
		if err := json.Unmarshal([]byte(item), &f); err != nil {
			return nil, fmt.Errorf("unmarshal review flag: %w", err)
		}
		flags = append(flags, f)
	}
	return flags, nil
}

var _ Queue = (*RedisQueue)(nil)
