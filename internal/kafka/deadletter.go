package kafka

import (
	"context"
	"strconv"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Headers added to a dead-lettered record.
const (
	HeaderOriginalTopic     = "x-original-topic"
	HeaderOriginalPartition = "x-original-partition"
	HeaderOriginalOffset    = "x-original-offset"
	HeaderError             = "x-exception-message"
	HeaderFailedConsumer    = "x-failed-consumer"
)

type DeadLetterWriter interface {
	Send(ctx context.Context, consumer string, m kafka.Message, cause error) error
}

// DeadLetter forwards records whose handler failed to saga-dlt.
type DeadLetter struct {
	w *kafka.Writer
}

func NewDeadLetter(brokers []string) *DeadLetter {
	return &DeadLetter{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  saga.TopicDeadLetter,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}}
}

func (d *DeadLetter) Send(ctx context.Context, consumer string, m kafka.Message, cause error) error {
	if err := d.w.WriteMessages(ctx, deadLetterRecord(consumer, m, cause)); err != nil {
		return errors.Wrapf(err, "dead-letter %s/%d/%d", m.Topic, m.Partition, m.Offset)
	}
	return nil
}

func (d *DeadLetter) Close() error { return d.w.Close() }

func deadLetterRecord(consumer string, m kafka.Message, cause error) kafka.Message {
	hs := make([]kafka.Header, 0, len(m.Headers)+5)
	hs = append(hs, m.Headers...)
	hs = append(hs,
		kafka.Header{Key: HeaderOriginalTopic, Value: []byte(m.Topic)},
		kafka.Header{Key: HeaderOriginalPartition, Value: []byte(strconv.Itoa(m.Partition))},
		kafka.Header{Key: HeaderOriginalOffset, Value: []byte(strconv.FormatInt(m.Offset, 10))},
		kafka.Header{Key: HeaderError, Value: []byte(cause.Error())},
		kafka.Header{Key: HeaderFailedConsumer, Value: []byte(consumer)},
	)
	return kafka.Message{Key: m.Key, Value: m.Value, Headers: hs, Time: time.Now()}
}

// DeadLetterLog reads saga-dlt and logs every record. Records are committed
// right after logging; there is no automatic replay.
type DeadLetterLog struct {
	r   reader
	log zerolog.Logger
}

func NewDeadLetterLog(brokers []string, group string, log zerolog.Logger) *DeadLetterLog {
	return &DeadLetterLog{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			GroupID:        group + "-dlt",
			Topic:          saga.TopicDeadLetter,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0,
		}),
		log: log,
	}
}

func (d *DeadLetterLog) Name() string { return "dead-letter-log" }

func (d *DeadLetterLog) Run(ctx context.Context) error {
	defer d.r.Close()
	for {
		m, err := d.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "fetch dead letter")
		}
		logDeadLetter(d.log, m)
		if err := d.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			d.log.Error().Err(err).Msg("commit dead letter")
		}
	}
}

func logDeadLetter(log zerolog.Logger, m kafka.Message) {
	get := func(k string) string {
		v, _ := header(m.Headers, k)
		return v
	}
	log.Error().
		Str("original_topic", get(HeaderOriginalTopic)).
		Str("original_partition", get(HeaderOriginalPartition)).
		Str("original_offset", get(HeaderOriginalOffset)).
		Str("consumer", get(HeaderFailedConsumer)).
		Str("error", get(HeaderError)).
		Str("key", string(m.Key)).
		Str("value", string(m.Value)).
		Msg("dead letter received")
}
