package saga

// Kind is the closed set of messages that travel through the saga.
// Handlers switch on it instead of comparing topic names.
type Kind uint8

const (
	KindUnknown Kind = iota

	KindOrderCreated
	KindOrderCompleted
	KindOrderCancelled
	KindPaymentCompleted
	KindPaymentFailed
	KindInventoryReserved
	KindInventoryRejected

	KindProcessPayment
	KindRefundPayment
	KindDeductInventory
)

var kindNames = map[Kind]string{
	KindUnknown:           "Unknown",
	KindOrderCreated:      "OrderCreated",
	KindOrderCompleted:    "OrderCompleted",
	KindOrderCancelled:    "OrderCancelled",
	KindPaymentCompleted:  "PaymentCompleted",
	KindPaymentFailed:     "PaymentFailed",
	KindInventoryReserved: "InventoryReserved",
	KindInventoryRejected: "InventoryRejected",
	KindProcessPayment:    "ProcessPayment",
	KindRefundPayment:     "RefundPayment",
	KindDeductInventory:   "DeductInventory",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// ParseKind is the inverse of String; it is used for the x-event-type header.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s && k != KindUnknown {
			return k, true
		}
	}
	return KindUnknown, false
}

// Topic returns the topic a message of this kind is published on.
func (k Kind) Topic() string {
	switch k {
	case KindOrderCreated, KindOrderCompleted, KindOrderCancelled:
		return TopicOrderEvents
	case KindPaymentCompleted, KindPaymentFailed:
		return TopicPaymentEvents
	case KindInventoryReserved, KindInventoryRejected:
		return TopicInventoryEvents
	case KindProcessPayment, KindRefundPayment:
		return TopicPaymentCommands
	case KindDeductInventory:
		return TopicInventoryCommands
	default:
		return ""
	}
}

func (k Kind) IsCommand() bool {
	return k == KindProcessPayment || k == KindRefundPayment || k == KindDeductInventory
}
