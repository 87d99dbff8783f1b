package notification

import (
	"context"

	"github.com/queosk/queosk/internal/domain"
	"github.com/queosk/queosk/pkg/logger"
)

// LogSender writes notifications to the application log. It is the
// development default when no push transport is configured.
type LogSender struct{}

// NewLogSender creates a log sender
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Name returns the driver name
func (s *LogSender) Name() string {
	return "log"
}

// Send logs the notification
func (s *LogSender) Send(_ context.Context, n *domain.Notification) error {
	logger.Info("Notification",
		logger.String("notification_id", n.ID),
		logger.String("contact", n.Contact),
		logger.String("title", n.Title),
	)
	return nil
}
