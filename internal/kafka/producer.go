package kafka

import (
	"context"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/ariefcatur/go-saga-orders/internal/telemetry"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Producer publishes saga messages. Writes are synchronous: the orchestrator
// must know a refund left the process before it cancels the order.
type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, msg saga.Message) error {
	m, err := toKafka(msg, time.Now())
	if err != nil {
		return err
	}

	ctx, span := telemetry.Tracer().Start(ctx, "publish "+m.Topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", m.Topic),
			attribute.String("saga.order_id", msg.CorrelationID().String()),
			attribute.String("saga.kind", msg.Kind().String()),
		))
	defer span.End()

	carrier := HeaderCarrier(m.Headers)
	otel.GetTextMapPropagator().Inject(ctx, &carrier)
	m.Headers = carrier

	if err := p.w.WriteMessages(ctx, m); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrapf(err, "write %s to %s", msg.Kind(), m.Topic)
	}
	return nil
}

func (p *Producer) Close() error { return p.w.Close() }
