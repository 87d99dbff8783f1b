package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/queosk/queosk/internal/domain"
	"github.com/queosk/queosk/pkg/metrics"
	"github.com/queosk/queosk/pkg/observability"
)

// NewNearFrontNotification builds the "you are near the front" message for
// contact, tagged with the trace id of the request that caused it.
func NewNearFrontNotification(ctx context.Context, contact string) *domain.Notification {
	return &domain.Notification{
		ID:        uuid.NewString(),
		Contact:   contact,
		TraceID:   observability.GetTraceIDFromContext(ctx),
		Title:     domain.NearFrontTitle,
		Body:      domain.NearFrontBody,
		CreatedAt: time.Now().UTC(),
	}
}

// DirectGateway sends inside the calling request.
type DirectGateway struct {
	sender domain.NotificationSender
}

// NewDirectGateway creates a gateway that calls sender inline
func NewDirectGateway(sender domain.NotificationSender) *DirectGateway {
	return &DirectGateway{sender: sender}
}

// NotifyNearFront sends the near-front notification
func (g *DirectGateway) NotifyNearFront(ctx context.Context, contact string) error {
	if contact == "" {
		return fmt.Errorf("notification contact is required")
	}

	err := g.sender.Send(ctx, NewNearFrontNotification(ctx, contact))
	if err != nil {
		metrics.RecordNotification(g.sender.Name(), "failed")
		return fmt.Errorf("failed to send notification: %w", err)
	}

	metrics.RecordNotification(g.sender.Name(), "sent")
	return nil
}

// QueuedGateway hands notifications to the outbox drained by the notification worker.
type QueuedGateway struct {
	queue domain.NotificationQueue
}

// NewQueuedGateway creates a gateway backed by an outbox
func NewQueuedGateway(queue domain.NotificationQueue) *QueuedGateway {
	return &QueuedGateway{queue: queue}
}

// NotifyNearFront enqueues the near-front notification
func (g *QueuedGateway) NotifyNearFront(ctx context.Context, contact string) error {
	if contact == "" {
		return fmt.Errorf("notification contact is required")
	}

	if err := g.queue.Enqueue(ctx, NewNearFrontNotification(ctx, contact)); err != nil {
		metrics.RecordNotification("outbox", "failed")
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	metrics.RecordNotification("outbox", "queued")
	return nil
}
