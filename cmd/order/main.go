// Command order runs the order participant and the saga orchestrator:
// the HTTP intake, the orchestrator consume loop and the stall sweeper.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-saga-orders/internal/app"
	"github.com/ariefcatur/go-saga-orders/internal/clock"
	"github.com/ariefcatur/go-saga-orders/internal/config"
	"github.com/ariefcatur/go-saga-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-saga-orders/internal/kafka"
	"github.com/ariefcatur/go-saga-orders/internal/orchestrator"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/ariefcatur/go-saga-orders/internal/postgres"
	"github.com/ariefcatur/go-saga-orders/internal/redisx"
	"github.com/ariefcatur/go-saga-orders/internal/runner"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := app.Start(ctx, config.Defaults{ServiceName: "order-svc", HTTPAddr: ":8080"})
	if err != nil {
		log.Fatal().Err(err).Msg("startup")
	}
	defer b.Close()

	rdb := redisx.New(b.Cfg.RedisAddr)
	defer rdb.Close()

	clk := clock.NewSystem()
	store := postgres.NewOrderStore(b.Pool)
	svc := orders.NewService(store, b.Producer, clk, b.Log)

	opts := []orchestrator.Option{orchestrator.WithMetrics(b.Metrics), orchestrator.WithClock(clk)}
	if b.Cfg.DedupEnabled {
		if err := redisx.Ping(ctx, rdb); err != nil {
			b.Log.Fatal().Err(err).Msg("dedup ledger needs redis")
		}
		opts = append(opts, orchestrator.WithLedger(redisx.NewLedger(rdb, b.Cfg.ServiceName)))
	}
	orch := orchestrator.New(store, b.Producer, b.Log.With().Str("component", "orchestrator").Logger(), opts...)

	dlt := b.DeadLetter()
	sup := runner.NewSupervisor(b.Log,
		b.Consumer("orchestrator", orch.Handle, dlt,
			saga.TopicOrderEvents, saga.TopicPaymentEvents, saga.TopicInventoryEvents),
		orchestrator.NewSweeper(store, b.Cfg.StallAfter, b.Cfg.SweepInterval, clk, b.Log, b.Metrics),
	)
	if dlt != nil {
		defer dlt.Close()
		sup.Add(kafkax.NewDeadLetterLog(b.Cfg.Brokers(), b.Cfg.ConsumerGroup, b.Log))
	}

	router := b.Router()
	(&httpx.OrdersHandler{Orders: svc, Cache: redisx.NewStatusCache(rdb), Log: b.Log}).Register(router)

	if err := b.Serve(ctx, router, sup); err != nil {
		b.Log.Error().Err(err).Msg("order service stopped")
		return
	}
	b.Log.Info().Msg("order service stopped")
}
