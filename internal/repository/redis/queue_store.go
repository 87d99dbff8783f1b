package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/queosk/queosk/internal/domain"
	"github.com/queosk/queosk/pkg/logger"
	"github.com/queosk/queosk/pkg/metrics"
)

// DefaultQueueKeyPrefix namespaces restaurant queue lists
const DefaultQueueKeyPrefix = "queue:"

// QueueStore keeps each restaurant queue as a Redis list, front at index 0.
// Every method maps to a single Redis command, which makes operations on one
// list linearizable without extra locking.
type QueueStore struct {
	client    *redis.Client
	keyPrefix string
}

var _ domain.LiveQueueStore = (*QueueStore)(nil)

// NewQueueStore creates a new Redis backed live queue store
func NewQueueStore(client *redis.Client, keyPrefix string) *QueueStore {
	if keyPrefix == "" {
		keyPrefix = DefaultQueueKeyPrefix
	}
	return &QueueStore{client: client, keyPrefix: keyPrefix}
}

func (s *QueueStore) key(scope string) string {
	return s.keyPrefix + scope
}

// Append pushes the id to the tail of the restaurant queue. RPUSH replies
// with the new length, so the position is read in the same command.
func (s *QueueStore) Append(ctx context.Context, scope, id string) (int64, error) {
	length, err := s.client.RPush(ctx, s.key(scope), id).Result()
	record("rpush", err)
	if err != nil {
		logger.Error("Failed to append to live queue",
			logger.String("restaurant_id", scope),
			logger.String("queue_id", id),
			logger.ErrorField(err),
		)
		return 0, fmt.Errorf("failed to append to live queue: %w", err)
	}

	logger.Debug("Queue id appended",
		logger.String("restaurant_id", scope),
		logger.String("queue_id", id),
		logger.Int64("position", length-1),
	)

	return length - 1, nil
}

// PopFront removes and returns the head of the restaurant queue
func (s *QueueStore) PopFront(ctx context.Context, scope string) (string, error) {
	id, err := s.client.LPop(ctx, s.key(scope)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			record("lpop", nil)
			return "", nil // Empty queue
		}
		record("lpop", err)
		logger.Error("Failed to pop live queue",
			logger.String("restaurant_id", scope),
			logger.ErrorField(err),
		)
		return "", fmt.Errorf("failed to pop live queue: %w", err)
	}
	record("lpop", nil)

	logger.Debug("Queue id popped",
		logger.String("restaurant_id", scope),
		logger.String("queue_id", id),
	)

	return id, nil
}

// ListAll returns every id of the restaurant queue, front first
func (s *QueueStore) ListAll(ctx context.Context, scope string) ([]string, error) {
	ids, err := s.client.LRange(ctx, s.key(scope), 0, -1).Result()
	record("lrange", err)
	if err != nil {
		logger.Error("Failed to list live queue",
			logger.String("restaurant_id", scope),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("failed to list live queue: %w", err)
	}

	return ids, nil
}

// Remove deletes every occurrence of the id; absent ids are not an error
func (s *QueueStore) Remove(ctx context.Context, scope, id string) error {
	removed, err := s.client.LRem(ctx, s.key(scope), 0, id).Result()
	record("lrem", err)
	if err != nil {
		logger.Error("Failed to remove from live queue",
			logger.String("restaurant_id", scope),
			logger.String("queue_id", id),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to remove from live queue: %w", err)
	}

	logger.Debug("Queue id removed",
		logger.String("restaurant_id", scope),
		logger.String("queue_id", id),
		logger.Int64("removed", removed),
	)

	return nil
}

// Rank returns the zero based position of the id
func (s *QueueStore) Rank(ctx context.Context, scope, id string) (int64, bool, error) {
	pos, err := s.client.LPos(ctx, s.key(scope), id, redis.LPosArgs{}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			record("lpos", nil)
			return 0, false, nil
		}
		record("lpos", err)
		logger.Error("Failed to rank live queue id",
			logger.String("restaurant_id", scope),
			logger.String("queue_id", id),
			logger.ErrorField(err),
		)
		return 0, false, fmt.Errorf("failed to rank live queue id: %w", err)
	}
	record("lpos", nil)

	return pos, true, nil
}

// Count returns the length of the restaurant queue
func (s *QueueStore) Count(ctx context.Context, scope string) (int64, error) {
	length, err := s.client.LLen(ctx, s.key(scope)).Result()
	record("llen", err)
	if err != nil {
		logger.Error("Failed to count live queue",
			logger.String("restaurant_id", scope),
			logger.ErrorField(err),
		)
		return 0, fmt.Errorf("failed to count live queue: %w", err)
	}

	return length, nil
}

// Ping checks the Redis connection
func (s *QueueStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func record(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordRedisOperation(operation, status)
}
