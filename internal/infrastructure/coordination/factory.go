package coordination

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ordersync/backend/internal/domain/shared"
)

// Substrate bundles the lock and queue implementations selected at
// startup. Both always come from the same backend: a half-distributed
// setup (redis queue, local locks) would be worse than either.
type Substrate struct {
	Lock  shared.KeyedLock
	Queue shared.TaskQueue
	// Distributed is false when running on the in-process fallback.
	Distributed bool
}

// NewSubstrate selects the coordination backend. Redis is tried first;
// when unavailable and fallback is allowed, the in-process implementation
// is used, which preserves single-process correctness but loses
// cross-process coordination.
func NewSubstrate(cfg RedisConfig, allowInMemoryFallback bool, logger *zap.Logger) (*Substrate, error) {
	client, err := NewRedisClient(cfg)
	if err == nil {
		logger.Info("Using Redis coordination substrate",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
		)
		return &Substrate{
			Lock:        NewRedisKeyedLock(client, "ordersync:lock:"),
			Queue:       NewRedisTaskQueue(client, "ordersync:queue:"),
			Distributed: true,
		}, nil
	}

	if !allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for coordination but unavailable: %w", err)
	}

	logger.Warn("Redis unavailable, falling back to in-process coordination. "+
		"Enrichment locking and queueing will not coordinate across processes.",
		zap.Error(err),
	)
	return &Substrate{
		Lock:        NewInMemoryKeyedLock(),
		Queue:       NewInMemoryTaskQueue(),
		Distributed: false,
	}, nil
}
