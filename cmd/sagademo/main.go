// Command sagademo runs every participant and the orchestrator in one process
// on the in-memory bus and plays three purchases: one that completes, one
// refunded after the inventory step rejects, one whose payment fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/inproc"
	"github.com/ariefcatur/go-saga-orders/internal/inventory"
	"github.com/ariefcatur/go-saga-orders/internal/logging"
	"github.com/ariefcatur/go-saga-orders/internal/metrics"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/ariefcatur/go-saga-orders/internal/payment"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type scenario struct {
	name      string
	userID    int
	productID int
	amount    float64
}

var scenarios = []scenario{
	{"A: in stock, enough balance", 1, 101, 100},
	{"B: out of stock, refunded", 1, 102, 100},
	{"C: not enough balance", 2, 101, 100},
}

func main() {
	level := flag.String("log-level", "warn", "log level")
	redeliver := flag.Int("redeliver", 1, "deliver every message this many times")
	ledger := flag.Bool("ledger", false, "enable the processed-event ledger")
	flag.Parse()

	log := logging.New("sagademo", *level, true)
	s := inproc.New(log, inproc.Options{
		Balances:  payment.SeedBalances,
		Products:  inventory.SeedProducts,
		Ledger:    *ledger,
		Redeliver: *redeliver,
		Metrics:   metrics.New(prometheus.NewRegistry()),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	failed := false
	for _, sc := range scenarios {
		if err := play(ctx, s, sc); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", sc.name, err)
			failed = true
		}
	}

	cancel()
	if err := <-done; err != nil {
		fmt.Fprintf(os.Stderr, "loops: %v\n", err)
		failed = true
	}
	if failed {
		os.Exit(1)
	}
}

func play(ctx context.Context, s *inproc.Saga, sc scenario) error {
	o, err := s.Orders.CreateOrder(ctx, sc.userID, sc.productID, sc.amount)
	if err != nil {
		return err
	}
	status, err := waitFinal(ctx, s, o.ID)
	if err != nil {
		return err
	}
	if err := waitSettled(ctx, s, o.ID, status); err != nil {
		return err
	}

	bal, err := s.Payment.Balance(ctx, sc.userID)
	if err != nil {
		return err
	}
	p, err := s.Inventory.Product(ctx, sc.productID)
	if err != nil {
		return err
	}
	fmt.Printf("%-30s order=%s status=%-9s balance(user %d)=%.2f stock(product %d)=%d\n",
		sc.name, o.ID, status, sc.userID, bal.Balance, sc.productID, p.AvailableStock)
	return nil
}

func waitFinal(ctx context.Context, s *inproc.Saga, id uuid.UUID) (orders.Status, error) {
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	for {
		o, err := s.Orders.Get(ctx, id)
		if err != nil {
			return "", err
		}
		if o.Status.Terminal() {
			return o.Status, nil
		}
		select {
		case <-deadline:
			return o.Status, errors.Errorf("order %s still %s", id, o.Status)
		case <-tick.C:
		}
	}
}

// waitSettled waits until the payment of a cancelled order is no longer
// APPROVED, so a pending refund has landed before the balance is read.
func waitSettled(ctx context.Context, s *inproc.Saga, id uuid.UUID, status orders.Status) error {
	if status != orders.StatusCancelled {
		return nil
	}
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	for {
		txn, err := s.PaymentStore.GetTransactionForUpdate(ctx, id)
		switch {
		case errors.Is(err, payment.ErrTransactionNotFound):
			return nil
		case err != nil:
			return err
		case txn.Status != payment.TxApproved:
			return nil
		}
		select {
		case <-deadline:
			return errors.Errorf("payment for order %s still %s", id, txn.Status)
		case <-tick.C:
		}
	}
}
