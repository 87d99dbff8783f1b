package domain

import (
	"context"
	"time"
)

// Notification is one near-front message addressed to a contact handle
type Notification struct {
	ID        string    `json:"id"`
	Contact   string    `json:"contact"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Attempts  int       `json:"attempts"`
	TraceID   string    `json:"trace_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification text
const (
	NearFrontTitle = "Your table is almost ready"
	NearFrontBody  = "Your turn is coming up soon. Please get ready to be seated."
)

// NotificationGateway is what the queue coordinator calls. Delivery is fire
// and forget: an error never rolls back queue state.
type NotificationGateway interface {
	NotifyNearFront(ctx context.Context, contact string) error
}

// NotificationSender delivers a notification through one transport
type NotificationSender interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// NotificationSenderRegistry resolves senders by driver name
type NotificationSenderRegistry interface {
	Register(sender NotificationSender)
	Get(driver string) (NotificationSender, error)
}

// NotificationQueue is the outbox consumed by the notification worker
type NotificationQueue interface {
	Enqueue(ctx context.Context, n *Notification) error
	// Dequeue returns nil when nothing arrived within the poll timeout.
	Dequeue(ctx context.Context) (*Notification, error)
	Length(ctx context.Context) (int64, error)
}
