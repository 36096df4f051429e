package saga

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeWireContract(t *testing.T) {
	orderID := uuid.MustParse("7b1f2f4e-5f0a-4c8e-9d62-0f7a1c2b3d4e")

	tests := []struct {
		name  string
		topic string
		body  string
		want  Message
	}{
		{
			name:  "order created",
			topic: TopicOrderEvents,
			body:  `{"orderRequest":{"userId":1,"productId":101,"amount":100,"orderId":"7b1f2f4e-5f0a-4c8e-9d62-0f7a1c2b3d4e"},"status":"ORDER_CREATED"}`,
			want: OrderEvent{
				OrderRequest: OrderRequest{UserID: 1, ProductID: 101, Amount: 100, OrderID: &orderID},
				Status:       StatusOrderCreated,
			},
		},
		{
			name:  "payment failed",
			topic: TopicPaymentEvents,
			body:  `{"paymentRequest":{"userId":2,"orderId":"7b1f2f4e-5f0a-4c8e-9d62-0f7a1c2b3d4e","amount":100},"status":"PAYMENT_FAILED"}`,
			want:  PaymentEvent{PaymentRequest: PaymentRequest{UserID: 2, OrderID: orderID, Amount: 100}, Status: StatusPaymentFailed},
		},
		{
			name:  "inventory rejected",
			topic: TopicInventoryEvents,
			body:  `{"inventoryRequest":{"userId":1,"productId":102,"orderId":"7b1f2f4e-5f0a-4c8e-9d62-0f7a1c2b3d4e"},"status":"INVENTORY_REJECTED"}`,
			want:  InventoryEvent{InventoryRequest: InventoryRequest{UserID: 1, ProductID: 102, OrderID: orderID}, Status: StatusInventoryRejected},
		},
		{
			name:  "refund command",
			topic: TopicPaymentCommands,
			body:  `{"userId":1,"orderId":"7b1f2f4e-5f0a-4c8e-9d62-0f7a1c2b3d4e","amount":0}`,
			want:  PaymentCommand{UserID: 1, OrderID: orderID},
		},
		{
			name:  "inventory command",
			topic: TopicInventoryCommands,
			body:  `{"userId":1,"productId":101,"orderId":"7b1f2f4e-5f0a-4c8e-9d62-0f7a1c2b3d4e"}`,
			want:  InventoryCommand{UserID: 1, ProductID: 101, OrderID: orderID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.topic, []byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.topic, got.Kind().Topic())
			assert.Equal(t, orderID, got.CorrelationID())
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		body  string
		err   error
	}{
		{"unknown topic", "orders", `{}`, ErrUnknownTopic},
		{"unknown status", TopicPaymentEvents, `{"paymentRequest":{"userId":1,"orderId":"7b1f2f4e-5f0a-4c8e-9d62-0f7a1c2b3d4e","amount":1},"status":"PAYMENT_PENDING"}`, ErrUnknownStatus},
		{"null order id", TopicOrderEvents, `{"orderRequest":{"userId":1,"productId":101,"amount":1,"orderId":null},"status":"ORDER_CREATED"}`, ErrMissingOrderID},
		{"negative amount", TopicPaymentCommands, `{"userId":1,"orderId":"7b1f2f4e-5f0a-4c8e-9d62-0f7a1c2b3d4e","amount":-5}`, ErrNegativeAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.topic, []byte(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}

	_, err := Decode(TopicInventoryCommands, []byte(`{not json`))
	require.Error(t, err)
}

func TestPaymentCommandKind(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, KindProcessPayment, PaymentCommand{UserID: 1, OrderID: id, Amount: 100}.Kind())
	assert.Equal(t, KindRefundPayment, NewRefundCommand(1, id).Kind())
	assert.Equal(t, TopicPaymentCommands, KindRefundPayment.Topic())
}

func TestEncodeRoundTripKeepsKind(t *testing.T) {
	cmd := InventoryCommand{UserID: 1, ProductID: 101, OrderID: uuid.New()}
	b, err := Encode(cmd.Rejected())
	require.NoError(t, err)

	msg, err := Decode(TopicInventoryEvents, b)
	require.NoError(t, err)
	assert.Equal(t, KindInventoryRejected, msg.Kind())
}

func TestParseKind(t *testing.T) {
	for k := KindOrderCreated; k <= KindDeductInventory; k++ {
		got, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("Unknown")
	assert.False(t, ok)
}
