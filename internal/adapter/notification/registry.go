package notification

import (
	"fmt"
	"strings"
	"sync"

	"github.com/queosk/queosk/internal/domain"
)

// registry is a thread-safe map of notification senders keyed by driver name.
type registry struct {
	mu      sync.RWMutex
	senders map[string]domain.NotificationSender
}

// NewRegistry creates an empty sender registry.
func NewRegistry() domain.NotificationSenderRegistry {
	return &registry{
		senders: make(map[string]domain.NotificationSender),
	}
}

// Register stores the sender under its own name.
func (r *registry) Register(sender domain.NotificationSender) {
	if sender == nil {
		return
	}

	normalized := normalize(sender.Name())
	if normalized == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[normalized] = sender
}

// Get returns the sender registered for driver.
func (r *registry) Get(driver string) (domain.NotificationSender, error) {
	normalized := normalize(driver)
	if normalized == "" {
		return nil, fmt.Errorf("notification driver is required")
	}

	r.mu.RLock()
	sender, ok := r.senders[normalized]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("notification sender for %s not found", normalized)
	}

	return sender, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
