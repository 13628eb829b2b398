package review

import (
	"context"
	"sync"
)

// MemoryQueue is the in-process queue used by tests and deployments without
// Redis.
type MemoryQueue struct {
	mu    sync.Mutex
	flags []Flag
}

// NewMemoryQueue constructs an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Push(_ context.Context, flags []Flag) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.flags = append(q.flags, flags...)
	return nil
}

func (q *MemoryQueue) Pending(_ context.Context, limit int) ([]Flag, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.flags)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Flag, n)
	copy(out, q.flags[:n])
	return out, nil
}

var _ Queue = (*MemoryQueue)(nil)
