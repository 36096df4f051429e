package kafka

import (
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// HeaderEventType carries the kind name so consumers and tooling can filter
// without decoding the body.
const HeaderEventType = "x-event-type"

// toKafka builds the record for msg: topic from its kind, key = order id.
func toKafka(msg saga.Message, now time.Time) (kafka.Message, error) {
	body, err := saga.Encode(msg)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Topic: msg.Kind().Topic(),
		Key:   saga.PartitionKey(msg.CorrelationID()),
		Value: body,
		Time:  now,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(msg.Kind().String())},
		},
	}, nil
}

// fromKafka decodes a record. The body is authoritative; the event-type header
// is only checked for agreement when present.
func fromKafka(m kafka.Message) (saga.Message, error) {
	msg, err := saga.Decode(m.Topic, m.Value)
	if err != nil {
		return nil, err
	}
	if h, ok := header(m.Headers, HeaderEventType); ok {
		if k, known := saga.ParseKind(h); known && k != msg.Kind() {
			return nil, errors.Wrapf(saga.ErrUnexpectedMessage, "header says %s, body is %s", k, msg.Kind())
		}
	}
	return msg, nil
}

func header(hs []kafka.Header, key string) (string, bool) {
	for _, h := range hs {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}
