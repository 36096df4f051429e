// Package app holds the startup and shutdown steps shared by the service binaries.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/config"
	"github.com/ariefcatur/go-saga-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-saga-orders/internal/kafka"
	"github.com/ariefcatur/go-saga-orders/internal/logging"
	"github.com/ariefcatur/go-saga-orders/internal/metrics"
	"github.com/ariefcatur/go-saga-orders/internal/postgres"
	"github.com/ariefcatur/go-saga-orders/internal/runner"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/ariefcatur/go-saga-orders/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Base is what every service binary starts with.
type Base struct {
	Cfg      config.Config
	Log      zerolog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Pool     *pgxpool.Pool
	Producer *kafkax.Producer

	tp *sdktrace.TracerProvider
}

// Start loads .env and the environment, then opens logging, tracing,
// metrics, Postgres (migrated) and the Kafka producer.
func Start(ctx context.Context, d config.Defaults) (*Base, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(d)
	if err != nil {
		return nil, err
	}
	b := &Base{Cfg: cfg, Log: logging.New(cfg.ServiceName, cfg.LogLevel, cfg.LogPretty)}

	b.tp, err = telemetry.InitTracerProvider(cfg.ServiceName, cfg.JaegerEndpoint)
	if err != nil {
		return nil, errors.Wrap(err, "init tracing")
	}

	b.Registry = prometheus.NewRegistry()
	b.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	b.Metrics = metrics.New(b.Registry)

	b.Pool, err = postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		return nil, errors.Wrap(err, "postgres")
	}
	if err := postgres.Migrate(ctx, b.Pool); err != nil {
		b.Pool.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	b.Producer = kafkax.NewProducer(cfg.Brokers())
	return b, nil
}

// Consumer builds a Kafka consume loop with the base's logger, metrics and,
// when enabled, the dead-letter writer.
func (b *Base) Consumer(name string, h saga.Handler, dlt *kafkax.DeadLetter, topics ...string) *kafkax.Consumer {
	opts := []kafkax.ConsumerOption{kafkax.WithLogger(b.Log), kafkax.WithMetrics(b.Metrics)}
	if dlt != nil {
		opts = append(opts, kafkax.WithDeadLetter(dlt))
	}
	return kafkax.NewConsumer(b.Cfg.Brokers(), b.Cfg.ConsumerGroup, name, h, topics, opts...)
}

// DeadLetter returns a dead-letter writer, or nil when dead-lettering is off.
func (b *Base) DeadLetter() *kafkax.DeadLetter {
	if !b.Cfg.DeadLetter {
		return nil
	}
	return kafkax.NewDeadLetter(b.Cfg.Brokers())
}

// Router returns the shared router; callers register their handlers on it.
func (b *Base) Router() *chi.Mux {
	return httpx.NewRouter(b.Log, b.Registry)
}

// Serve runs the HTTP server and the supervised loops until ctx is cancelled
// or one of them fails, then shuts everything down.
func (b *Base) Serve(ctx context.Context, h http.Handler, sup *runner.Supervisor) error {
	srv := &http.Server{Addr: b.Cfg.HTTPAddr, Handler: h, ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b.Log.Info().Str("addr", b.Cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		return sup.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		b.Log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// Close releases what Start opened, in reverse order.
func (b *Base) Close() {
	if err := b.Producer.Close(); err != nil {
		b.Log.Warn().Err(err).Msg("close producer")
	}
	b.Pool.Close()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := b.tp.Shutdown(sctx); err != nil {
		b.Log.Warn().Err(err).Msg("shutdown tracer")
	}
}
