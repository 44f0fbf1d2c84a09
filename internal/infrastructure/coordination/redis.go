package coordination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ordersync/backend/internal/domain/shared"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisClient connects and pings a Redis client.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// releaseScript deletes the lock key only when still owned by the caller,
// so an expired-and-reacquired lock is never released by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisKeyedLock implements KeyedLock on Redis SET NX with TTL. Suitable
// for distributed deployments where multiple workers share lock state.
type RedisKeyedLock struct {
	client    *redis.Client
	keyPrefix string

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisKeyedLock creates a Redis-backed keyed lock.
func NewRedisKeyedLock(client *redis.Client, keyPrefix string) *RedisKeyedLock {
	if keyPrefix == "" {
		keyPrefix = "lock:"
	}
	return &RedisKeyedLock{
		client:    client,
		keyPrefix: keyPrefix,
		tokens:    make(map[string]string),
	}
}

// Acquire takes the lock with SET NX in a single atomic operation.
func (l *RedisKeyedLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if ok {
		l.mu.Lock()
		l.tokens[key] = token
		l.mu.Unlock()
	}
	return ok, nil
}

// Release frees the lock if this instance still owns it.
func (l *RedisKeyedLock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()
	if !ok {
		return nil
	}

	if err := releaseScript.Run(ctx, l.client, []string{l.keyPrefix + key}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// RedisTaskQueue implements TaskQueue on Redis lists (LPUSH/RPOP).
type RedisTaskQueue struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisTaskQueue creates a Redis-backed task queue.
func NewRedisTaskQueue(client *redis.Client, keyPrefix string) *RedisTaskQueue {
	if keyPrefix == "" {
		keyPrefix = "queue:"
	}
	return &RedisTaskQueue{client: client, keyPrefix: keyPrefix}
}

// Push appends a payload to the queue.
func (q *RedisTaskQueue) Push(ctx context.Context, queue string, payload string) error {
	if err := q.client.LPush(ctx, q.keyPrefix+queue, payload).Err(); err != nil {
		return fmt.Errorf("failed to push to queue: %w", err)
	}
	return nil
}

// Pop removes the oldest payload, or returns "" when the queue is empty.
func (q *RedisTaskQueue) Pop(ctx context.Context, queue string) (string, error) {
	payload, err := q.client.RPop(ctx, q.keyPrefix+queue).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to pop from queue: %w", err)
	}
	return payload, nil
}

// Len returns the queue depth.
func (q *RedisTaskQueue) Len(ctx context.Context, queue string) (int64, error) {
	n, err := q.client.LLen(ctx, q.keyPrefix+queue).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return n, nil
}

// Ensure interfaces are implemented.
var (
	_ shared.KeyedLock = (*RedisKeyedLock)(nil)
	_ shared.TaskQueue = (*RedisTaskQueue)(nil)
)
