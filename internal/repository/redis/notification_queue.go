package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/queosk/queosk/internal/domain"
	"github.com/queosk/queosk/pkg/logger"
)

// DefaultOutboxKey is the list holding pending notifications
const DefaultOutboxKey = "notification_queue"

// NotificationQueue is a Redis list outbox: producers LPUSH, the worker BRPOPs.
type NotificationQueue struct {
	client      *redis.Client
	key         string
	pollTimeout time.Duration
}

var _ domain.NotificationQueue = (*NotificationQueue)(nil)

// NewNotificationQueue creates a new Redis notification outbox
func NewNotificationQueue(client *redis.Client, key string, pollTimeout time.Duration) *NotificationQueue {
	if key == "" {
		key = DefaultOutboxKey
	}
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	return &NotificationQueue{client: client, key: key, pollTimeout: pollTimeout}
}

// Enqueue stores the notification for asynchronous delivery
func (q *NotificationQueue) Enqueue(ctx context.Context, n *domain.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	err = q.client.LPush(ctx, q.key, data).Err()
	record("lpush", err)
	if err != nil {
		logger.Error("Failed to enqueue notification",
			logger.String("notification_id", n.ID),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	logger.Debug("Notification enqueued",
		logger.String("notification_id", n.ID),
	)

	return nil
}

// Dequeue blocks up to the poll timeout for the oldest notification
func (q *NotificationQueue) Dequeue(ctx context.Context) (*domain.Notification, error) {
	result, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // No items in queue
		}
		record("brpop", err)
		return nil, fmt.Errorf("failed to dequeue notification: %w", err)
	}
	record("brpop", nil)

	if len(result) < 2 {
		return nil, fmt.Errorf("unexpected queue result format")
	}

	var n domain.Notification
	if err := json.Unmarshal([]byte(result[1]), &n); err != nil {
		logger.Error("Dropping malformed notification", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to unmarshal notification: %w", err)
	}

	return &n, nil
}

// Length returns the number of pending notifications
func (q *NotificationQueue) Length(ctx context.Context) (int64, error) {
	length, err := q.client.LLen(ctx, q.key).Result()
	record("llen", err)
	if err != nil {
		return 0, fmt.Errorf("failed to get outbox length: %w", err)
	}

	return length, nil
}
