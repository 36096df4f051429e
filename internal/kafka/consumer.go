package kafka

import (
	"context"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/metrics"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/ariefcatur/go-saga-orders/internal/telemetry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer is one consume-and-react loop over a set of topics. Records are
// handled one at a time and committed after handling, whether the handler
// succeeded or the record was dead-lettered.
type Consumer struct {
	name    string
	r       reader
	h       saga.Handler
	dlt     DeadLetterWriter
	log     zerolog.Logger
	metrics *metrics.Metrics
	backoff time.Duration
}

type ConsumerOption func(*Consumer)

func WithDeadLetter(d DeadLetterWriter) ConsumerOption {
	return func(c *Consumer) { c.dlt = d }
}

func WithMetrics(m *metrics.Metrics) ConsumerOption {
	return func(c *Consumer) { c.metrics = m }
}

func WithLogger(l zerolog.Logger) ConsumerOption {
	return func(c *Consumer) { c.log = l }
}

func NewConsumer(brokers []string, group, name string, h saga.Handler, topics []string, opts ...ConsumerOption) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return newConsumer(r, name, h, opts...)
}

func newConsumer(r reader, name string, h saga.Handler, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		name:    name,
		r:       r,
		h:       h,
		log:     zerolog.Nop(),
		backoff: time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With().Str("consumer", name).Logger()
	return c
}

func (c *Consumer) Name() string { return c.name }

func (c *Consumer) Run(ctx context.Context) error {
	defer c.r.Close()
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error().Err(err).Msg("fetch failed, retrying")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}

		if err := c.process(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// the record could not be parked anywhere: leave it uncommitted
			// and stop so the group rebalances and it is read again.
			return err
		}
		if err := c.r.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error().Err(err).Int64("offset", m.Offset).Msg("commit failed")
		}
	}
}

// process returns an error only when a failed record could not be dead-lettered.
func (c *Consumer) process(ctx context.Context, m kafka.Message) error {
	carrier := HeaderCarrier(m.Headers)
	ctx = otel.GetTextMapPropagator().Extract(ctx, &carrier)
	ctx, span := telemetry.Tracer().Start(ctx, "consume "+m.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", m.Topic),
			attribute.String("messaging.consumer.group.name", c.name),
			attribute.Int64("messaging.kafka.offset", m.Offset),
		))
	defer span.End()

	log := c.log.With().Str("topic", m.Topic).Int("partition", m.Partition).Int64("offset", m.Offset).Logger()

	msg, err := fromKafka(m)
	if err != nil {
		c.metrics.Message(c.name, "unknown", metrics.OutcomeDecode)
		log.Error().Err(err).Msg("undecodable record")
		return c.park(ctx, span, m, err)
	}
	kind := msg.Kind().String()
	span.SetAttributes(attribute.String("saga.kind", kind), attribute.String("saga.order_id", msg.CorrelationID().String()))

	if err := c.h(ctx, msg); err != nil {
		c.metrics.Message(c.name, kind, metrics.OutcomeError)
		log.Error().Err(err).Str("order_id", msg.CorrelationID().String()).Str("kind", kind).Msg("handler failed")
		return c.park(ctx, span, m, err)
	}
	c.metrics.Message(c.name, kind, metrics.OutcomeOK)
	return nil
}

func (c *Consumer) park(ctx context.Context, span trace.Span, m kafka.Message, cause error) error {
	span.RecordError(cause)
	span.SetStatus(codes.Error, cause.Error())
	if c.dlt == nil {
		return nil
	}
	if err := c.dlt.Send(ctx, c.name, m, cause); err != nil {
		return errors.Wrap(err, "park failed record")
	}
	c.metrics.DeadLettered(m.Topic)
	return nil
}
