package saga

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrUnknownTopic   = errors.New("saga: unknown topic")
	ErrUnknownStatus  = errors.New("saga: unknown status")
	ErrMissingOrderID = errors.New("saga: missing order id")
	ErrNegativeAmount = errors.New("saga: negative amount")

	// ErrUnexpectedMessage is returned by a handler given a kind it does not consume.
	ErrUnexpectedMessage = errors.New("saga: unexpected message")
)

// Encode renders the JSON body of a message; the body is the external contract.
func Encode(msg Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", msg.Kind())
	}
	return b, nil
}

// Decode turns a topic and body into a typed message. It is the only place a
// topic name decides anything.
func Decode(topic string, b []byte) (Message, error) {
	switch topic {
	case TopicOrderEvents:
		return decodeAs[OrderEvent](topic, b)
	case TopicPaymentEvents:
		return decodeAs[PaymentEvent](topic, b)
	case TopicInventoryEvents:
		return decodeAs[InventoryEvent](topic, b)
	case TopicPaymentCommands:
		return decodeAs[PaymentCommand](topic, b)
	case TopicInventoryCommands:
		return decodeAs[InventoryCommand](topic, b)
	default:
		return nil, errors.Wrapf(ErrUnknownTopic, "topic %q", topic)
	}
}

func decodeAs[T Message](topic string, b []byte) (Message, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, errors.Wrapf(err, "decode %s", topic)
	}
	if err := Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the invariants every message must hold before a handler sees it.
func Validate(msg Message) error {
	if msg.Kind() == KindUnknown {
		return errors.Wrapf(ErrUnknownStatus, "%T", msg)
	}
	if msg.CorrelationID() == uuid.Nil {
		return errors.Wrapf(ErrMissingOrderID, "%s", msg.Kind())
	}
	switch m := msg.(type) {
	case PaymentCommand:
		if m.Amount < 0 {
			return errors.Wrapf(ErrNegativeAmount, "order %s", m.OrderID)
		}
	case OrderEvent:
		if m.OrderRequest.Amount < 0 {
			return errors.Wrapf(ErrNegativeAmount, "order %s", m.CorrelationID())
		}
	}
	return nil
}
