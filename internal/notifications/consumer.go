package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"parkly/pkg/logger"

	"github.com/IBM/sarama"
)

// EventHandler processes one decoded event
type EventHandler interface {
	HandleEvent(ctx context.Context, event Event) error
}

type ConsumerConfig struct {
	Brokers      []string
	GroupID      string
	Topic        string
	MaxRetries   int
	RetryBackoff time.Duration
}

// KafkaConsumer feeds lifecycle events from a consumer group to a handler
type KafkaConsumer struct {
	group   sarama.ConsumerGroup
	config  ConsumerConfig
	handler EventHandler
	log     *logger.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewKafkaConsumer(config ConsumerConfig, handler EventHandler, log *logger.Logger) (*KafkaConsumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = 30 * time.Second
	saramaConfig.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = time.Second
	}

	return &KafkaConsumer{group: group, config: config, handler: handler, log: log}, nil
}

// Start consumes until Stop is called or ctx ends
func (c *KafkaConsumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			c.log.Warn("consumer group error", "error", err.Error())
		}
	}()
	go func() {
		defer c.wg.Done()
		handler := &groupHandler{consumer: c}
		for {
			if err := c.group.Consume(ctx, []string{c.config.Topic}, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.log.Warn("consume failed", "error", err.Error())
				time.Sleep(time.Second)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.log.Info("notification consumer started", "topic", c.config.Topic, "group", c.config.GroupID)
}

func (c *KafkaConsumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	err := c.group.Close()
	c.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	return nil
}

func (c *KafkaConsumer) process(ctx context.Context, message *sarama.ConsumerMessage) error {
	var event Event
	if err := json.Unmarshal(message.Value, &event); err != nil {
		// poison message: log and move on
		c.log.Warn("dropping undecodable event", "offset", message.Offset, "error", err.Error())
		return nil
	}

	backoff := c.config.RetryBackoff
	for attempt := 0; ; attempt++ {
		err := c.handler.HandleEvent(ctx, event)
		if err == nil {
			return nil
		}
		if attempt == c.config.MaxRetries {
			return fmt.Errorf("event %s failed after %d attempts: %w", event.ID, attempt+1, err)
		}

		select {
		case <-time.After(backoff * time.Duration(1<<attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type groupHandler struct {
	consumer *KafkaConsumer
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.consumer.process(session.Context(), message); err != nil {
				h.consumer.log.Error("event handling failed", "topic", message.Topic, "offset", message.Offset, "error", err.Error())
			}
			// failed deliveries are logged, not replayed forever
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
