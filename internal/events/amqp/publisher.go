// Package amqp relays committed kittycore events to a RabbitMQ exchange.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"kittycore/internal/events"
	"kittycore/pkg/domain"
)

// Channel is the subset of *amqp.Channel used by the publisher.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Logger receives relay failures. Emit never returns an error, so failed
// publishes are only visible through this logger.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Publisher is a domain.EventSink that publishes JSON envelopes.
type Publisher struct {
	conn       *amqp.Connection
	channel    Channel
	exchange   string
	routingKey string
	logger     Logger
	now        func() time.Time
}

var _ domain.EventSink = (*Publisher)(nil)

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger routes publish failures to logger.
func WithLogger(logger Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the envelope timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// Dial connects to the broker, declares a durable direct exchange and returns
// a publisher bound to it.
func Dial(url, exchange, routingKey string, opts ...Option) (*Publisher, error) {
	if exchange == "" {
		return nil, errors.New("amqp exchange required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	p := NewPublisher(ch, exchange, routingKey, opts...)
	p.conn = conn
	return p, nil
}

// NewPublisher wraps an already-open channel.
func NewPublisher(ch Channel, exchange, routingKey string, opts ...Option) *Publisher {
	p := &Publisher{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     noopLogger{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends a single event and reports any failure.
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	env := events.NewEnvelope(event, p.now())
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.channel.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    env.ID,
		Type:         string(event.Kind),
		Body:         body,
		Timestamp:    env.EmittedAt,
		DeliveryMode: amqp.Persistent,
	})
}

// Emit implements domain.EventSink.
func (p *Publisher) Emit(ctx context.Context, event domain.Event) {
	if err := p.Publish(ctx, event); err != nil {
		p.logger.Warn("event relay failed", "kind", event.Kind, "kitty_id", event.KittyID.String(), "error", err)
	}
}

// Close releases the channel and, when dialed, the connection.
func (p *Publisher) Close() error {
	err := p.channel.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}
