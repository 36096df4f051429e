package orchestrator

import (
	"context"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/clock"
	"github.com/ariefcatur/go-saga-orders/internal/metrics"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/rs/zerolog"
)

type StalledLister interface {
	ListStalled(ctx context.Context, createdBefore time.Time) ([]orders.PurchaseOrder, error)
}

// Sweeper reports sagas that have been CREATED for longer than the threshold.
// It never changes them: a saga that lost its downstream event has no
// automatic recovery path, so it is surfaced for an operator.
type Sweeper struct {
	store    StalledLister
	after    time.Duration
	interval time.Duration
	clock    clock.Clock
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

func NewSweeper(store StalledLister, after, interval time.Duration, clk clock.Clock, log zerolog.Logger, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		store:    store,
		after:    after,
		interval: interval,
		clock:    clk,
		log:      log,
		metrics:  m,
	}
}

func (s *Sweeper) Name() string { return "stall-sweeper" }

// Run sweeps every interval until ctx is done. A non-positive interval
// disables sweeping but still holds the loop open.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.log.Warn().Dur("interval", s.interval).Msg("stall sweeper disabled")
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.log.Error().Err(err).Msg("stall sweep failed")
			}
		}
	}
}

// Sweep runs one pass and returns the number of stalled orders.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.after)
	stalled, err := s.store.ListStalled(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.metrics.Stalled(len(stalled))
	for _, o := range stalled {
		s.log.Warn().
			Str("order_id", o.ID.String()).
			Time("created_at", o.CreatedAt).
			Dur("age", s.clock.Now().Sub(o.CreatedAt)).
			Msg("saga stalled in CREATED")
	}
	return len(stalled), nil
}
