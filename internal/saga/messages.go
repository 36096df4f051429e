package saga

import (
	"context"

	"github.com/google/uuid"
)

// Message is implemented by every command and event on the bus.
type Message interface {
	Kind() Kind
	// CorrelationID is the order id the message belongs to.
	CorrelationID() uuid.UUID
}

// Publisher puts a message on the topic of its kind.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Handler reacts to one decoded message. A nil error means the message is done.
type Handler func(ctx context.Context, msg Message) error

type OrderStatus string

const (
	StatusOrderCreated   OrderStatus = "ORDER_CREATED"
	StatusOrderCompleted OrderStatus = "ORDER_COMPLETED"
	StatusOrderCancelled OrderStatus = "ORDER_CANCELLED"
)

type PaymentStatus string

const (
	StatusPaymentCompleted PaymentStatus = "PAYMENT_COMPLETED"
	StatusPaymentFailed    PaymentStatus = "PAYMENT_FAILED"
)

type InventoryStatus string

const (
	StatusInventoryReserved InventoryStatus = "INVENTORY_RESERVED"
	StatusInventoryRejected InventoryStatus = "INVENTORY_REJECTED"
)

// ---- events ----

type OrderRequest struct {
	UserID    int        `json:"userId"`
	ProductID int        `json:"productId"`
	Amount    float64    `json:"amount"`
	OrderID   *uuid.UUID `json:"orderId"`
}

type OrderEvent struct {
	OrderRequest OrderRequest `json:"orderRequest"`
	Status       OrderStatus  `json:"status"`
}

func (e OrderEvent) Kind() Kind {
	switch e.Status {
	case StatusOrderCreated:
		return KindOrderCreated
	case StatusOrderCompleted:
		return KindOrderCompleted
	case StatusOrderCancelled:
		return KindOrderCancelled
	default:
		return KindUnknown
	}
}

func (e OrderEvent) CorrelationID() uuid.UUID {
	if e.OrderRequest.OrderID == nil {
		return uuid.Nil
	}
	return *e.OrderRequest.OrderID
}

type PaymentRequest struct {
	UserID  int       `json:"userId"`
	OrderID uuid.UUID `json:"orderId"`
	Amount  float64   `json:"amount"`
}

type PaymentEvent struct {
	PaymentRequest PaymentRequest `json:"paymentRequest"`
	Status         PaymentStatus  `json:"status"`
}

func (e PaymentEvent) Kind() Kind {
	switch e.Status {
	case StatusPaymentCompleted:
		return KindPaymentCompleted
	case StatusPaymentFailed:
		return KindPaymentFailed
	default:
		return KindUnknown
	}
}

func (e PaymentEvent) CorrelationID() uuid.UUID { return e.PaymentRequest.OrderID }

type InventoryRequest struct {
	UserID    int       `json:"userId"`
	ProductID int       `json:"productId"`
	OrderID   uuid.UUID `json:"orderId"`
}

type InventoryEvent struct {
	InventoryRequest InventoryRequest `json:"inventoryRequest"`
	Status           InventoryStatus  `json:"status"`
}

func (e InventoryEvent) Kind() Kind {
	switch e.Status {
	case StatusInventoryReserved:
		return KindInventoryReserved
	case StatusInventoryRejected:
		return KindInventoryRejected
	default:
		return KindUnknown
	}
}

func (e InventoryEvent) CorrelationID() uuid.UUID { return e.InventoryRequest.OrderID }

// ---- commands ----

// PaymentCommand with Amount == 0 is the refund signal.
type PaymentCommand struct {
	UserID  int       `json:"userId"`
	OrderID uuid.UUID `json:"orderId"`
	Amount  float64   `json:"amount"`
}

func NewRefundCommand(userID int, orderID uuid.UUID) PaymentCommand {
	return PaymentCommand{UserID: userID, OrderID: orderID}
}

func (c PaymentCommand) Kind() Kind {
	if c.Amount == 0 {
		return KindRefundPayment
	}
	return KindProcessPayment
}

func (c PaymentCommand) CorrelationID() uuid.UUID { return c.OrderID }

type InventoryCommand struct {
	UserID    int       `json:"userId"`
	ProductID int       `json:"productId"`
	OrderID   uuid.UUID `json:"orderId"`
}

func (c InventoryCommand) Kind() Kind { return KindDeductInventory }

func (c InventoryCommand) CorrelationID() uuid.UUID { return c.OrderID }

// Completed and Failed build the outcome events of a payment step.
func (c PaymentCommand) Completed() PaymentEvent {
	return PaymentEvent{PaymentRequest: PaymentRequest(c), Status: StatusPaymentCompleted}
}

func (c PaymentCommand) Failed() PaymentEvent {
	return PaymentEvent{PaymentRequest: PaymentRequest(c), Status: StatusPaymentFailed}
}

func (c InventoryCommand) Reserved() InventoryEvent {
	return InventoryEvent{InventoryRequest: InventoryRequest(c), Status: StatusInventoryReserved}
}

func (c InventoryCommand) Rejected() InventoryEvent {
	return InventoryEvent{InventoryRequest: InventoryRequest(c), Status: StatusInventoryRejected}
}
