package notifications

import (
	"context"
	"fmt"
	"sync"

	"parkly/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQPublisher sends each event to a durable queue named after its topic
type RabbitMQPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
	log      *logger.Logger
}

func NewRabbitMQPublisher(url string, log *logger.Logger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	log.Info("rabbitmq event publisher connected")
	return &RabbitMQPublisher{
		conn:     conn,
		ch:       ch,
		declared: make(map[string]bool),
		log:      log,
	}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared[event.Topic] {
		if _, err := p.ch.QueueDeclare(event.Topic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", event.Topic, err)
		}
		p.declared[event.Topic] = true
	}

	err = p.ch.PublishWithContext(ctx, "", event.Topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event to RabbitMQ: %w", err)
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		p.log.Warn("failed to close rabbitmq channel", "error", err.Error())
	}
	return p.conn.Close()
}
