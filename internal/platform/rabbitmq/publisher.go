package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/skillmatch-api/internal/config"
	"github.com/phrazzld/skillmatch-api/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the subset of *amqp.Channel used for publishing.
type channel interface {
	PublishWithContext(
		ctx context.Context,
		exchange, key string,
		mandatory, immediate bool,
		msg amqp.Publishing,
	) error
	Close() error
}

// Publisher forwards events to a topic exchange using the event type as
// routing key. It implements events.EventHandler.
type Publisher struct {
	conn     *amqp.Connection
	channel  channel
	exchange string
	logger   *slog.Logger
	mu       sync.Mutex
}

var _ events.EventHandler = (*Publisher)(nil)

// Dial connects to cfg.URL and declares the durable topic exchange.
func Dial(cfg config.RabbitMQConfig, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	p := newPublisher(ch, cfg.Exchange, logger)
	p.conn = conn
	p.logger.Info("RabbitMQ publisher connected", "exchange", cfg.Exchange)
	return p, nil
}

func newPublisher(ch channel, exchange string, logger *slog.Logger) *Publisher {
	return &Publisher{
		channel:  ch,
		exchange: exchange,
		logger:   logger.With(slog.String("component", "rabbitmq_publisher")),
	}
}

// HandleEvent implements events.EventHandler.
func (p *Publisher) HandleEvent(ctx context.Context, event *events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID.String(),
			Timestamp:    event.CreatedAt,
			Type:         event.Type,
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("failed to publish event",
			"routing_key", event.Type,
			"event_id", event.ID,
			"error", err)
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}

	p.logger.Debug("event published",
		"routing_key", event.Type,
		"event_id", event.ID,
		"size", len(body))
	return nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Warn("error closing channel", "error", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return err
		}
	}

	p.logger.Info("RabbitMQ publisher closed")
	return nil
}

// NoopPublisher logs events instead of publishing them.
type NoopPublisher struct {
	logger *slog.Logger
}

var _ events.EventHandler = (*NoopPublisher)(nil)

// NewNoopPublisher creates a publisher that does nothing.
func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopPublisher{logger: logger}
}

// HandleEvent implements events.EventHandler.
func (p *NoopPublisher) HandleEvent(_ context.Context, event *events.Event) error {
	p.logger.Debug("noop publish", "routing_key", event.Type, "event_id", event.ID)
	return nil
}

// Close is a no-op.
func (p *NoopPublisher) Close() error {
	return nil
}
