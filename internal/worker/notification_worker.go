package worker

import (
	"context"
	"time"

	"github.com/queosk/queosk/internal/domain"
	"github.com/queosk/queosk/pkg/logger"
	"github.com/queosk/queosk/pkg/metrics"
	"github.com/queosk/queosk/pkg/observability"
)

// NotificationWorker drains the notification outbox and hands every message
// to the configured sender. Callers manage its lifecycle through the context
// passed to Start.
type NotificationWorker struct {
	queue       domain.NotificationQueue
	sender      domain.NotificationSender
	interval    time.Duration
	maxAttempts int
}

// NotificationWorkerConfig defines runtime options for the worker.
type NotificationWorkerConfig struct {
	PollingInterval time.Duration
	MaxAttempts     int
}

// NewNotificationWorker builds a new notification worker instance.
func NewNotificationWorker(queue domain.NotificationQueue, sender domain.NotificationSender, cfg NotificationWorkerConfig) *NotificationWorker {
	interval := cfg.PollingInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}

	return &NotificationWorker{
		queue:       queue,
		sender:      sender,
		interval:    interval,
		maxAttempts: attempts,
	}
}

// Start launches the worker loop. It blocks until context cancellation.
func (w *NotificationWorker) Start(ctx context.Context) {
	logger.Info("Notification worker started", logger.String("driver", w.sender.Name()))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopping", logger.ErrorField(ctx.Err()))
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain delivers queued notifications until the outbox is empty. Failed
// notifications go back to the outbox only after the drain, so each one gets
// at most one attempt per tick.
func (w *NotificationWorker) drain(ctx context.Context) {
	var failed []*domain.Notification
	for ctx.Err() == nil {
		n, ok := w.processNext(ctx)
		if !ok {
			break
		}
		if n != nil {
			failed = append(failed, n)
		}
	}

	for _, n := range failed {
		w.retry(ctx, n)
	}

	if size, err := w.queue.Length(ctx); err == nil {
		metrics.SetNotificationOutboxSize(float64(size))
	}
}

// processNext reports whether a notification was taken from the outbox and
// returns it when delivery failed.
func (w *NotificationWorker) processNext(ctx context.Context) (*domain.Notification, bool) {
	n, err := w.queue.Dequeue(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("Failed to dequeue notification", logger.ErrorField(err))
		}
		return nil, false
	}

	if n == nil {
		return nil, false
	}

	log := logger.WithFields(
		logger.String("notification_id", n.ID),
		logger.String("trace_id", n.TraceID),
	)

	start := time.Now()
	n.Attempts++
	err = w.sender.Send(observability.WithTraceID(ctx, n.TraceID), n)
	duration := time.Since(start)

	if err != nil {
		metrics.RecordNotification(w.sender.Name(), "failed")
		log.Error("Failed to deliver notification",
			logger.Int("attempt", n.Attempts),
			logger.Duration("duration", duration),
			logger.ErrorField(err),
		)
		return n, true
	}

	metrics.RecordNotification(w.sender.Name(), "sent")
	log.Info("Queued notification delivered", logger.Duration("duration", duration))
	return nil, true
}

func (w *NotificationWorker) retry(ctx context.Context, n *domain.Notification) {
	if n.Attempts >= w.maxAttempts {
		metrics.RecordNotification(w.sender.Name(), "dropped")
		logger.Warn("Dropping notification after max attempts",
			logger.String("notification_id", n.ID),
			logger.Int("attempts", n.Attempts),
		)
		return
	}

	if err := w.queue.Enqueue(ctx, n); err != nil {
		logger.Error("Failed to requeue notification",
			logger.String("notification_id", n.ID),
			logger.ErrorField(err),
		)
	}
}
