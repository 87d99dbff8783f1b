package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queosk/queosk/internal/domain"
	"github.com/queosk/queosk/pkg/observability"
)

type memoryOutbox struct {
	mu    sync.Mutex
	items []*domain.Notification
}

func (o *memoryOutbox) Enqueue(_ context.Context, n *domain.Notification) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = append(o.items, n)
	return nil
}

func (o *memoryOutbox) Dequeue(context.Context) (*domain.Notification, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.items) == 0 {
		return nil, nil
	}
	n := o.items[0]
	o.items = o.items[1:]
	return n, nil
}

func (o *memoryOutbox) Length(context.Context) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return int64(len(o.items)), nil
}

type countingSender struct {
	mu       sync.Mutex
	attempts map[string]int
	failures int
}

func (s *countingSender) Name() string { return "counting" }

func (s *countingSender) Send(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempts == nil {
		s.attempts = map[string]int{}
	}
	s.attempts[n.ID]++
	if s.failures > 0 {
		s.failures--
		return errors.New("push gateway unavailable")
	}
	return nil
}

func (s *countingSender) count(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[id]
}

func TestNotificationWorker_DrainDeliversAll(t *testing.T) {
	ctx := context.Background()
	outbox := &memoryOutbox{}
	sender := &countingSender{}
	w := NewNotificationWorker(outbox, sender, NotificationWorkerConfig{})

	require.NoError(t, outbox.Enqueue(ctx, &domain.Notification{ID: "a", Contact: "a@example.com"}))
	require.NoError(t, outbox.Enqueue(ctx, &domain.Notification{ID: "b", Contact: "b@example.com"}))

	w.drain(ctx)

	assert.Equal(t, 1, sender.count("a"))
	assert.Equal(t, 1, sender.count("b"))
	size, _ := outbox.Length(ctx)
	assert.Zero(t, size)
}

func TestNotificationWorker_OneAttemptPerDrain(t *testing.T) {
	ctx := context.Background()
	outbox := &memoryOutbox{}
	sender := &countingSender{failures: 10}
	w := NewNotificationWorker(outbox, sender, NotificationWorkerConfig{MaxAttempts: 5})

	require.NoError(t, outbox.Enqueue(ctx, &domain.Notification{ID: "a"}))

	w.drain(ctx)
	assert.Equal(t, 1, sender.count("a"), "a failed send waits for the next tick")
	size, _ := outbox.Length(ctx)
	assert.Equal(t, int64(1), size)

	for i := 0; i < 3; i++ {
		w.drain(ctx)
	}
	assert.Equal(t, 4, sender.count("a"))

	w.drain(ctx)
	assert.Equal(t, 5, sender.count("a"))
	size, _ = outbox.Length(ctx)
	assert.Zero(t, size, "dropped after max attempts")

	w.drain(ctx)
	assert.Equal(t, 5, sender.count("a"))
}

func TestNotificationWorker_FailureDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	outbox := &memoryOutbox{}
	sender := &countingSender{failures: 1}
	w := NewNotificationWorker(outbox, sender, NotificationWorkerConfig{MaxAttempts: 3})

	require.NoError(t, outbox.Enqueue(ctx, &domain.Notification{ID: "a"}))
	require.NoError(t, outbox.Enqueue(ctx, &domain.Notification{ID: "b"}))

	w.drain(ctx)
	assert.Equal(t, 1, sender.count("a"))
	assert.Equal(t, 1, sender.count("b"))

	w.drain(ctx)
	assert.Equal(t, 2, sender.count("a"), "recovered on the next tick")
	size, _ := outbox.Length(ctx)
	assert.Zero(t, size)
}

func TestNotificationWorker_PropagatesTraceID(t *testing.T) {
	ctx := context.Background()
	outbox := &memoryOutbox{}
	sender := &traceSender{}
	w := NewNotificationWorker(outbox, sender, NotificationWorkerConfig{})

	require.NoError(t, outbox.Enqueue(ctx, &domain.Notification{ID: "a", TraceID: "trace-42"}))
	w.drain(ctx)

	assert.Equal(t, "trace-42", sender.traceID)
}

type traceSender struct {
	traceID string
}

func (s *traceSender) Name() string { return "trace" }

func (s *traceSender) Send(ctx context.Context, _ *domain.Notification) error {
	s.traceID = observability.GetTraceIDFromContext(ctx)
	return nil
}

func TestNotificationWorker_StartStopsOnCancel(t *testing.T) {
	outbox := &memoryOutbox{}
	sender := &countingSender{}
	w := NewNotificationWorker(outbox, sender, NotificationWorkerConfig{PollingInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.NoError(t, outbox.Enqueue(ctx, &domain.Notification{ID: "late"}))
	assert.Eventually(t, func() bool { return sender.count("late") == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
