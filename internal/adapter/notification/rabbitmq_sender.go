package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/queosk/queosk/internal/domain"
	"github.com/queosk/queosk/pkg/logger"
)

const publishTimeout = 10 * time.Second

// publisher is the part of *amqp.Channel the sender uses.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitMQSender publishes notifications to a fanout exchange for push workers.
type RabbitMQSender struct {
	conn     *amqp.Connection
	channel  publisher
	exchange string
}

// DialRabbitMQ connects to the broker and declares the notification exchange
func DialRabbitMQ(url, exchange string) (*RabbitMQSender, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare %s exchange: %w", exchange, err)
	}

	logger.Info("Connected to RabbitMQ", logger.String("exchange", exchange))

	return &RabbitMQSender{conn: conn, channel: ch, exchange: exchange}, nil
}

// NewRabbitMQSender wraps an already open channel
func NewRabbitMQSender(ch publisher, exchange string) *RabbitMQSender {
	return &RabbitMQSender{channel: ch, exchange: exchange}
}

// Name returns the driver name
func (s *RabbitMQSender) Name() string {
	return "rabbitmq"
}

// Send publishes the notification as a persistent JSON message
func (s *RabbitMQSender) Send(ctx context.Context, n *domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = s.channel.PublishWithContext(
		ctx,
		s.exchange, // exchange
		"",         // routing key (ignored for fanout)
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     n.ID,
			CorrelationId: n.TraceID,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}

// Close closes the broker connection
func (s *RabbitMQSender) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
