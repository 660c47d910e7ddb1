package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/circular-protocol/otc-gateway/pkg/model"
)

// QuoteService handles quote request commands pulled off the bus.
type QuoteService interface {
	QuoteCommand(ctx context.Context, cmd *model.QuoteRequestCommand) error
}

// Consumer consumes quote request commands from RabbitMQ
type Consumer struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	quoteService QuoteService
	queue        string
	logger       *zap.Logger
	done         chan struct{}
}

// NewConsumer creates a new RabbitMQ consumer
func NewConsumer(url, queue string, quoteService QuoteService, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &Consumer{
		conn:         conn,
		channel:      channel,
		quoteService: quoteService,
		queue:        queue,
		logger:       logger,
		done:         make(chan struct{}),
	}, nil
}

// Start starts consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", c.queue, err)
	}

	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", c.queue, err)
	}

	c.logger.Info("Started consuming from RabbitMQ",
		zap.String("queue", c.queue),
	)

	go c.consumeQuoteRequests(ctx, msgs)

	return nil
}

func (c *Consumer) consumeQuoteRequests(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("Quote request channel closed")
				return
			}

			c.logger.Debug("Received quote request message", zap.String("body", string(msg.Body)))

			var cmd model.QuoteRequestCommand
			if err := json.Unmarshal(msg.Body, &cmd); err != nil {
				c.logger.Error("Failed to unmarshal QuoteRequestCommand", zap.Error(err))
				msg.Nack(false, false)
				continue
			}

			// Unpriceable requests are answered with a rejection event by the
			// service; only infrastructure failures come back as errors.
			if err := c.quoteService.QuoteCommand(ctx, &cmd); err != nil {
				c.logger.Error("Failed to handle quote request", zap.Error(err))
				msg.Nack(false, true) // Requeue on failure
				continue
			}

			msg.Ack(false)
		}
	}
}

// Close closes the consumer
func (c *Consumer) Close() error {
	close(c.done)

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
