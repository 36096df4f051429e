// Command payment runs the payment participant.
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
	"github.com/ariefcatur/go-saga-orders/internal/payment"
	"github.com/ariefcatur/go-saga-orders/internal/postgres"
	"github.com/ariefcatur/go-saga-orders/internal/runner"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := app.Start(ctx, config.Defaults{ServiceName: "payment-svc", HTTPAddr: ":8081"})
	if err != nil {
		log.Fatal().Err(err).Msg("startup")
	}
	defer b.Close()

	store := postgres.NewPaymentStore(b.Pool)
	if b.Cfg.Seed {
		if err := store.Seed(ctx, payment.SeedBalances); err != nil {
			b.Log.Fatal().Err(err).Msg("seed balances")
		}
	}
	svc := payment.NewService(store, b.Producer, clock.NewSystem(), b.Log)

	dlt := b.DeadLetter()
	if dlt != nil {
		defer dlt.Close()
	}
	sup := runner.NewSupervisor(b.Log, b.Consumer("payment", svc.HandleCommand, dlt, saga.TopicPaymentCommands))

	router := b.Router()
	(&httpx.PaymentsHandler{Payments: svc, Log: b.Log}).Register(router)

	if err := b.Serve(ctx, router, sup); err != nil {
		b.Log.Error().Err(err).Msg("payment service stopped")
		return
	}
	b.Log.Info().Msg("payment service stopped")
}
