// Command inventory runs the inventory participant.
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
	"github.com/ariefcatur/go-saga-orders/internal/inventory"
	"github.com/ariefcatur/go-saga-orders/internal/postgres"
	"github.com/ariefcatur/go-saga-orders/internal/runner"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := app.Start(ctx, config.Defaults{ServiceName: "inventory-svc", HTTPAddr: ":8082"})
	if err != nil {
		log.Fatal().Err(err).Msg("startup")
	}
	defer b.Close()

	store := postgres.NewInventoryStore(b.Pool)
	if b.Cfg.Seed {
		if err := store.Seed(ctx, inventory.SeedProducts); err != nil {
			b.Log.Fatal().Err(err).Msg("seed products")
		}
	}
	svc := inventory.NewService(store, b.Producer, clock.NewSystem(), b.Log)

	dlt := b.DeadLetter()
	if dlt != nil {
		defer dlt.Close()
	}
	sup := runner.NewSupervisor(b.Log, b.Consumer("inventory", svc.HandleCommand, dlt, saga.TopicInventoryCommands))

	router := b.Router()
	(&httpx.InventoryHandler{Inventory: svc, Log: b.Log}).Register(router)

	if err := b.Serve(ctx, router, sup); err != nil {
		b.Log.Error().Err(err).Msg("inventory service stopped")
		return
	}
	b.Log.Info().Msg("inventory service stopped")
}
