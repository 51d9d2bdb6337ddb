package notifications

import (
	"context"
	"fmt"

	"parkly/pkg/logger"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes each event on a subject named after its topic
type NATSPublisher struct {
	conn *nats.Conn
	log  *logger.Logger
}

func NewNATSPublisher(url string, log *logger.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("parkly"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("nats event publisher connected", "url", conn.ConnectedUrl())
	return &NATSPublisher{conn: conn, log: log}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := nats.NewMsg(event.Topic)
	msg.Data = payload
	msg.Header.Set("Event-Id", event.ID)
	msg.Header.Set("Reservation-Id", event.ReservationID)

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}
	p.log.DebugContext(ctx, "event published", "subject", event.Topic, "reservation_id", event.ReservationID)
	return nil
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
