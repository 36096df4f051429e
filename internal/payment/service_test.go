package payment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/clock"
	"github.com/ariefcatur/go-saga-orders/internal/memory"
	"github.com/ariefcatur/go-saga-orders/internal/payment"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(balances ...payment.UserBalance) (*payment.Service, *memory.PaymentStore, *memory.Recorder) {
	store := memory.NewPaymentStore(balances...)
	pub := &memory.Recorder{}
	clk := clock.NewFixed(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	return payment.NewService(store, pub, clk, zerolog.Nop()), store, pub
}

func balanceOf(t *testing.T, s *payment.Service, userID int) float64 {
	t.Helper()
	b, err := s.Balance(context.Background(), userID)
	require.NoError(t, err)
	return b.Balance
}

func TestProcessPayment(t *testing.T) {
	tests := []struct {
		name        string
		balances    []payment.UserBalance
		amount      float64
		wantKind    saga.Kind
		wantBalance float64
		wantTx      payment.TxStatus
	}{
		{"sufficient", []payment.UserBalance{{UserID: 1, Balance: 100}}, 40, saga.KindPaymentCompleted, 60, payment.TxApproved},
		{"exact balance", []payment.UserBalance{{UserID: 1, Balance: 40}}, 40, saga.KindPaymentCompleted, 0, payment.TxApproved},
		{"insufficient", []payment.UserBalance{{UserID: 1, Balance: 30}}, 40, saga.KindPaymentFailed, 30, payment.TxRejected},
		{"no balance row", nil, 40, saga.KindPaymentFailed, -1, payment.TxRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, store, pub := newService(tt.balances...)
			cmd := saga.PaymentCommand{UserID: 1, OrderID: uuid.New(), Amount: tt.amount}

			ev, err := svc.ProcessPayment(ctx, cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, ev.Kind())
			assert.Equal(t, cmd.OrderID, ev.CorrelationID())
			assert.Equal(t, []saga.Kind{tt.wantKind}, pub.Kinds())

			if tt.wantBalance >= 0 {
				assert.Equal(t, tt.wantBalance, balanceOf(t, svc, 1))
			}
			txn, err := store.GetTransactionForUpdate(ctx, cmd.OrderID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTx, txn.Status)
			assert.Len(t, store.Audit(), 1)
		})
	}
}

func TestProcessPayment_RedeliveryReplays(t *testing.T) {
	ctx := context.Background()
	svc, store, pub := newService(payment.UserBalance{UserID: 1, Balance: 100})
	cmd := saga.PaymentCommand{UserID: 1, OrderID: uuid.New(), Amount: 40}

	first, err := svc.ProcessPayment(ctx, cmd)
	require.NoError(t, err)
	second, err := svc.ProcessPayment(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 60.0, balanceOf(t, svc, 1))
	assert.Equal(t, []saga.Kind{saga.KindPaymentCompleted, saga.KindPaymentCompleted}, pub.Kinds())
	assert.Len(t, store.Audit(), 1)
}

func TestProcessPayment_RejectsNonPositiveAmount(t *testing.T) {
	svc, _, pub := newService(payment.UserBalance{UserID: 1, Balance: 100})
	_, err := svc.ProcessPayment(context.Background(), saga.PaymentCommand{UserID: 1, OrderID: uuid.New(), Amount: -1})
	require.ErrorIs(t, err, payment.ErrInvalidAmount)
	assert.Empty(t, pub.Messages())
}

func TestRefundPayment(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(payment.UserBalance{UserID: 1, Balance: 100})
	orderID := uuid.New()

	_, err := svc.ProcessPayment(ctx, saga.PaymentCommand{UserID: 1, OrderID: orderID, Amount: 40})
	require.NoError(t, err)
	require.Equal(t, 60.0, balanceOf(t, svc, 1))

	require.NoError(t, svc.RefundPayment(ctx, 1, orderID))
	assert.Equal(t, 100.0, balanceOf(t, svc, 1))
	txn, err := store.GetTransactionForUpdate(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, payment.TxRefunded, txn.Status)

	// second refund is a no-op
	require.NoError(t, svc.RefundPayment(ctx, 1, orderID))
	assert.Equal(t, 100.0, balanceOf(t, svc, 1))
	assert.Len(t, store.Audit(), 2)
}

func TestRefundPayment_NoOps(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(
		payment.UserBalance{UserID: 1, Balance: 10},
		payment.UserBalance{UserID: 2, Balance: 100},
	)

	// unknown order
	require.NoError(t, svc.RefundPayment(ctx, 1, uuid.New()))
	assert.Equal(t, 10.0, balanceOf(t, svc, 1))

	// rejected payment
	rejected := uuid.New()
	_, err := svc.ProcessPayment(ctx, saga.PaymentCommand{UserID: 1, OrderID: rejected, Amount: 50})
	require.NoError(t, err)
	require.NoError(t, svc.RefundPayment(ctx, 1, rejected))
	assert.Equal(t, 10.0, balanceOf(t, svc, 1))

	// payment owned by someone else
	paid := uuid.New()
	_, err = svc.ProcessPayment(ctx, saga.PaymentCommand{UserID: 2, OrderID: paid, Amount: 50})
	require.NoError(t, err)
	require.NoError(t, svc.RefundPayment(ctx, 1, paid))
	assert.Equal(t, 10.0, balanceOf(t, svc, 1))
	assert.Equal(t, 50.0, balanceOf(t, svc, 2))
}

func TestRefundPayment_ConcurrentRedeliveryCreditsOnce(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(payment.UserBalance{UserID: 1, Balance: 100})
	orderID := uuid.New()
	_, err := svc.ProcessPayment(ctx, saga.PaymentCommand{UserID: 1, OrderID: orderID, Amount: 40})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.RefundPayment(ctx, 1, orderID))
		}()
	}
	wg.Wait()
	assert.Equal(t, 100.0, balanceOf(t, svc, 1))
}

func TestHandleCommand_RoutesOnKind(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newService(payment.UserBalance{UserID: 1, Balance: 100})
	orderID := uuid.New()

	require.NoError(t, svc.HandleCommand(ctx, saga.PaymentCommand{UserID: 1, OrderID: orderID, Amount: 30}))
	require.NoError(t, svc.HandleCommand(ctx, saga.NewRefundCommand(1, orderID)))
	assert.Equal(t, 100.0, balanceOf(t, svc, 1))
	// refunds emit nothing
	assert.Equal(t, []saga.Kind{saga.KindPaymentCompleted}, pub.Kinds())

	err := svc.HandleCommand(ctx, saga.InventoryCommand{UserID: 1, ProductID: 101, OrderID: orderID})
	require.ErrorIs(t, err, saga.ErrUnexpectedMessage)
}
