// Package events publishes storefront domain events to the shared
// ecommerce.events topic exchange.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/correlation"
)

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	exchangeDeclarer
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	ch       Channel
	seqRepo  SequenceRepository
	producer string
	timeout  time.Duration
}

type PublisherOptions struct {
	Producer string
	// Timeout bounds a single publish. Defaults to 3s.
	Timeout time.Duration
}

func NewPublisher(conn *amqp.Connection, seqRepo SequenceRepository, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := newPublisher(ch, seqRepo, opts)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	return p, nil
}

func newPublisher(ch Channel, seqRepo SequenceRepository, opts PublisherOptions) (*Publisher, error) {
	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	producer := opts.Producer
	if producer == "" {
		producer = StorefrontProducer
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &Publisher{
		ch:       ch,
		seqRepo:  seqRepo,
		producer: producer,
		timeout:  timeout,
	}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// PublishCartCheckedOut implements cart.Publisher. Events are partitioned by
// cart id.
func (p *Publisher) PublishCartCheckedOut(ctx context.Context, co cart.Checkout) error {
	seq, err := p.seqRepo.NextSequence(ctx, co.CartID)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	ev := BuildCartCheckedOutEvent(co, EnvelopeOptions{
		PartitionKey:  co.CartID,
		Sequence:      seq,
		Producer:      p.producer,
		CorrelationID: correlation.ID(ctx),
	})
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal CartCheckedOut envelope: %w", err)
	}

	return p.publishJSON(ctx, CartCheckedOutRoutingKey, ev.EventEnvelope, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, env EventEnvelope, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     env.EventID,
			CorrelationId: env.CorrelationID,
			Timestamp:     env.OccurredAt,
			Type:          env.EventName,
			Body:          body,
		},
	)
}

// LogPublisher stands in for RabbitMQ when no broker is configured: it builds
// the same envelope and logs it.
type LogPublisher struct {
	seqRepo SequenceRepository
	logger  zerolog.Logger
}

func NewLogPublisher(seqRepo SequenceRepository, logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{seqRepo: seqRepo, logger: logger}
}

func (p *LogPublisher) PublishCartCheckedOut(ctx context.Context, co cart.Checkout) error {
	seq, err := p.seqRepo.NextSequence(ctx, co.CartID)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}
	ev := BuildCartCheckedOutEvent(co, EnvelopeOptions{
		Sequence:      seq,
		CorrelationID: correlation.ID(ctx),
	})
	p.logger.Info().
		Str("event", ev.EventName).
		Str("event_id", ev.EventID).
		Str("cart_id", ev.Payload.CartID).
		Str("user_id", ev.Payload.UserID).
		Int64("sequence", ev.Sequence).
		Int64("total", ev.Payload.TotalAmount).
		Str("correlation_id", ev.CorrelationID).
		Msg("cart checked out (no broker configured)")
	return nil
}
