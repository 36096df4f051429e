// Package inproc wires the three participants and the orchestrator onto the
// in-memory bus, so a whole saga runs inside one process.
package inproc

import (
	"context"

	"github.com/ariefcatur/go-saga-orders/internal/clock"
	"github.com/ariefcatur/go-saga-orders/internal/inventory"
	"github.com/ariefcatur/go-saga-orders/internal/memory"
	"github.com/ariefcatur/go-saga-orders/internal/metrics"
	"github.com/ariefcatur/go-saga-orders/internal/orchestrator"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/ariefcatur/go-saga-orders/internal/payment"
	"github.com/ariefcatur/go-saga-orders/internal/runner"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/rs/zerolog"
)

type Options struct {
	Balances  []payment.UserBalance
	Products  []inventory.Product
	Ledger    bool
	Redeliver int
	Metrics   *metrics.Metrics
}

// Saga holds every component of an in-process deployment. The stores are
// exported so callers can inspect the outcome.
type Saga struct {
	Orders    *orders.Service
	Payment   *payment.Service
	Inventory *inventory.Service

	OrderStore     *memory.OrderStore
	PaymentStore   *memory.PaymentStore
	InventoryStore *memory.InventoryStore

	bus        *memory.Bus
	supervisor *runner.Supervisor
}

func New(log zerolog.Logger, opt Options) *Saga {
	clk := clock.NewSystem()
	bus := memory.NewBus(log, memory.WithRedelivery(opt.Redeliver), memory.WithBusMetrics(opt.Metrics))

	s := &Saga{
		OrderStore:     memory.NewOrderStore(),
		PaymentStore:   memory.NewPaymentStore(opt.Balances...),
		InventoryStore: memory.NewInventoryStore(opt.Products...),
		bus:            bus,
	}
	s.Orders = orders.NewService(s.OrderStore, bus, clk, log.With().Str("component", "orders").Logger())
	s.Payment = payment.NewService(s.PaymentStore, bus, clk, log.With().Str("component", "payment").Logger())
	s.Inventory = inventory.NewService(s.InventoryStore, bus, clk, log.With().Str("component", "inventory").Logger())

	opts := []orchestrator.Option{orchestrator.WithMetrics(opt.Metrics), orchestrator.WithClock(clk)}
	if opt.Ledger {
		opts = append(opts, orchestrator.WithLedger(memory.NewLedger()))
	}
	orch := orchestrator.New(s.OrderStore, bus, log.With().Str("component", "orchestrator").Logger(), opts...)

	s.supervisor = runner.NewSupervisor(log,
		bus.Subscribe("orchestrator", orch.Handle,
			saga.TopicOrderEvents, saga.TopicPaymentEvents, saga.TopicInventoryEvents),
		bus.Subscribe("payment", s.Payment.HandleCommand, saga.TopicPaymentCommands),
		bus.Subscribe("inventory", s.Inventory.HandleCommand, saga.TopicInventoryCommands),
	)
	return s
}

// Run blocks until ctx is cancelled or a loop fails.
func (s *Saga) Run(ctx context.Context) error {
	return s.supervisor.Run(ctx)
}
