package coordination

import (
	"context"
	"sync"
	"time"

	"github.com/ordersync/backend/internal/domain/shared"
)

// InMemoryKeyedLock implements KeyedLock with process-local state. It
// preserves single-process correctness when Redis is unavailable; it
// cannot coordinate across processes, which the factory logs loudly at
// startup rather than leaving implicit.
type InMemoryKeyedLock struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

// NewInMemoryKeyedLock creates an in-process keyed lock.
func NewInMemoryKeyedLock() *InMemoryKeyedLock {
	return &InMemoryKeyedLock{locks: make(map[string]time.Time)}
}

// Acquire takes the lock unless an unexpired holder exists.
func (l *InMemoryKeyedLock) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, held := l.locks[key]; held && time.Now().Before(expiry) {
		return false, nil
	}
	l.locks[key] = time.Now().Add(ttl)
	return true, nil
}

// Release frees the lock.
func (l *InMemoryKeyedLock) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, key)
	return nil
}

// InMemoryTaskQueue implements TaskQueue with process-local slices.
type InMemoryTaskQueue struct {
	mu     sync.Mutex
	queues map[string][]string
}

// NewInMemoryTaskQueue creates an in-process task queue.
func NewInMemoryTaskQueue() *InMemoryTaskQueue {
	return &InMemoryTaskQueue{queues: make(map[string][]string)}
}

// Push appends a payload to the queue.
func (q *InMemoryTaskQueue) Push(_ context.Context, queue string, payload string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queues[queue] = append(q.queues[queue], payload)
	return nil
}

// Pop removes the oldest payload, or returns "" when the queue is empty.
func (q *InMemoryTaskQueue) Pop(_ context.Context, queue string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.queues[queue]
	if len(items) == 0 {
		return "", nil
	}
	payload := items[0]
	q.queues[queue] = items[1:]
	return payload, nil
}

// Len returns the queue depth.
func (q *InMemoryTaskQueue) Len(_ context.Context, queue string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.queues[queue])), nil
}

// Ensure interfaces are implemented.
var (
	_ shared.KeyedLock = (*InMemoryKeyedLock)(nil)
	_ shared.TaskQueue = (*InMemoryTaskQueue)(nil)
)
