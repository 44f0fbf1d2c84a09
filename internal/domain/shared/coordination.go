package shared

import (
	"context"
	"time"
)

// KeyedLock is a short-lived mutual-exclusion primitive keyed by string.
// The distributed implementation coordinates across processes; the
// in-memory one preserves single-process correctness when the lock store
// is unavailable (a documented degradation, not a silent one).
type KeyedLock interface {
	// Acquire attempts to take the lock. Returns false when another holder
	// owns it. The lock expires on its own after ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release frees the lock if still held by this acquirer.
	Release(ctx context.Context, key string) error
}

// TaskQueue is a minimal FIFO queue of opaque string payloads backing the
// enrichment work list.
type TaskQueue interface {
	Push(ctx context.Context, queue string, payload string) error
	// Pop removes and returns the oldest payload, or ("", nil) when the
	// queue is empty.
	Pop(ctx context.Context, queue string) (string, error)
	Len(ctx context.Context, queue string) (int64, error)
}
