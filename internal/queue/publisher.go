package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher emits domain events to RabbitMQ. Publishing is best-effort:
// callers log and continue on failure, the main request flow never depends
// on the broker. A nil Publisher is a no-op, so the service runs without a
// broker configured.
type Publisher struct {
	url string
	log *slog.Logger
}

func NewPublisher(url string, log *slog.Logger) *Publisher {
	if url == "" {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{url: url, log: log}
}

func (p *Publisher) RoomClosed(ctx context.Context, event RoomClosedEvent) error {
	return p.publish(ctx, QueueRoomClosed, event)
}

func (p *Publisher) MessageCreated(ctx context.Context, event MessageCreatedEvent) error {
	return p.publish(ctx, QueueMessageCreated, event)
}

func (p *Publisher) publish(ctx context.Context, queueName string, event any) error {
	if p == nil {
		return nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable declare is idempotent; messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}
