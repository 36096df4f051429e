package inproc

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/inventory"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/ariefcatur/go-saga-orders/internal/payment"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func start(t *testing.T, opt Options) *Saga {
	t.Helper()
	if opt.Balances == nil {
		opt.Balances = payment.SeedBalances
	}
	if opt.Products == nil {
		opt.Products = inventory.SeedProducts
	}
	s := New(zerolog.Nop(), opt)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return s
}

func waitFinal(t *testing.T, s *Saga, id uuid.UUID) orders.Status {
	t.Helper()
	var status orders.Status
	require.Eventually(t, func() bool {
		o, err := s.Orders.Get(context.Background(), id)
		if err != nil {
			return false
		}
		status = o.Status
		return status.Terminal()
	}, 2*time.Second, 5*time.Millisecond)
	return status
}

func balance(t *testing.T, s *Saga, userID int) float64 {
	t.Helper()
	b, err := s.Payment.Balance(context.Background(), userID)
	require.NoError(t, err)
	return b.Balance
}

func stock(t *testing.T, s *Saga, productID int) int {
	t.Helper()
	p, err := s.Inventory.Product(context.Background(), productID)
	require.NoError(t, err)
	return p.AvailableStock
}

func txStatus(t *testing.T, s *Saga, orderID uuid.UUID) payment.TxStatus {
	t.Helper()
	txn, err := s.PaymentStore.GetTransactionForUpdate(context.Background(), orderID)
	require.NoError(t, err)
	return txn.Status
}

var deliveries = []struct {
	name string
	opt  Options
}{
	{"once", Options{}},
	{"redelivered", Options{Redeliver: 2}},
	{"redelivered with ledger", Options{Redeliver: 3, Ledger: true}},
}

func TestSaga_ScenarioA_Completes(t *testing.T) {
	for _, d := range deliveries {
		t.Run(d.name, func(t *testing.T) {
			s := start(t, d.opt)
			o, err := s.Orders.CreateOrder(context.Background(), 1, 101, 100)
			require.NoError(t, err)

			assert.Equal(t, orders.StatusCompleted, waitFinal(t, s, o.ID))
			assert.Equal(t, 900.0, balance(t, s, 1))
			assert.Equal(t, 9, stock(t, s, 101))
			assert.Equal(t, payment.TxApproved, txStatus(t, s, o.ID))
		})
	}
}

func TestSaga_ScenarioB_RejectedInventoryRefunds(t *testing.T) {
	for _, d := range deliveries {
		t.Run(d.name, func(t *testing.T) {
			s := start(t, d.opt)
			o, err := s.Orders.CreateOrder(context.Background(), 1, 102, 100)
			require.NoError(t, err)

			assert.Equal(t, orders.StatusCancelled, waitFinal(t, s, o.ID))
			// the refund command is consumed asynchronously
			require.Eventually(t, func() bool {
				return txStatus(t, s, o.ID) == payment.TxRefunded
			}, 2*time.Second, 5*time.Millisecond)
			assert.Equal(t, 1000.0, balance(t, s, 1))
			assert.Equal(t, 0, stock(t, s, 102))
		})
	}
}

func TestSaga_ScenarioC_PaymentFailureCancels(t *testing.T) {
	for _, d := range deliveries {
		t.Run(d.name, func(t *testing.T) {
			s := start(t, d.opt)
			o, err := s.Orders.CreateOrder(context.Background(), 2, 101, 100)
			require.NoError(t, err)

			assert.Equal(t, orders.StatusCancelled, waitFinal(t, s, o.ID))
			assert.Equal(t, 50.0, balance(t, s, 2))
			assert.Equal(t, 10, stock(t, s, 101))
			assert.Equal(t, payment.TxRejected, txStatus(t, s, o.ID))
		})
	}
}

func TestSaga_ConcurrentOrdersNeverOversell(t *testing.T) {
	s := start(t, Options{
		Balances: []payment.UserBalance{{UserID: 1, Balance: 1000}},
		Products: []inventory.Product{{ProductID: 101, AvailableStock: 3}},
	})

	ids := make([]uuid.UUID, 0, 6)
	for i := 0; i < 6; i++ {
		o, err := s.Orders.CreateOrder(context.Background(), 1, 101, 10)
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}

	completed := 0
	for _, id := range ids {
		if waitFinal(t, s, id) == orders.StatusCompleted {
			completed++
		}
	}
	assert.Equal(t, 3, completed)
	assert.Equal(t, 0, stock(t, s, 101))
	require.Eventually(t, func() bool {
		return balance(t, s, 1) == 970.0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSaga_BurstOfOrdersDrains(t *testing.T) {
	const n = 3000
	s := start(t, Options{
		Balances:  []payment.UserBalance{{UserID: 1, Balance: 5000}},
		Products:  []inventory.Product{{ProductID: 101, AvailableStock: 2000}},
		Redeliver: 2,
	})

	ctx := context.Background()
	for i := 0; i < n; i++ {
		_, err := s.Orders.CreateOrder(ctx, 1, 101, 1)
		require.NoError(t, err)
	}

	var completed, cancelled int
	require.Eventually(t, func() bool {
		all, err := s.OrderStore.List(ctx)
		if err != nil {
			return false
		}
		completed, cancelled = 0, 0
		for _, o := range all {
			switch o.Status {
			case orders.StatusCompleted:
				completed++
			case orders.StatusCancelled:
				cancelled++
			}
		}
		return len(all) == n && completed+cancelled == n
	}, 30*time.Second, 50*time.Millisecond)

	assert.Equal(t, 2000, completed)
	assert.Equal(t, 1000, cancelled)
	assert.Equal(t, 0, stock(t, s, 101))
	require.Eventually(t, func() bool {
		return balance(t, s, 1) == 3000.0
	}, 10*time.Second, 20*time.Millisecond)
}
