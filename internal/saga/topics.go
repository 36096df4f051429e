package saga

import "github.com/google/uuid"

const (
	TopicOrderEvents       = "order-events"
	TopicPaymentEvents     = "payment-events"
	TopicInventoryEvents   = "inventory-events"
	TopicPaymentCommands   = "payment-commands"
	TopicInventoryCommands = "inventory-commands"

	// TopicDeadLetter receives messages whose handler failed.
	TopicDeadLetter = "saga-dlt"
)

// DefaultProductID is used when an order request leaves productId out.
const DefaultProductID = 101

// Partition key = order id, so every message of one saga stays ordered within a topic.
func PartitionKey(orderID uuid.UUID) []byte { return []byte(orderID.String()) }
