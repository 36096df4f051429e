package memory

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-saga-orders/internal/metrics"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var ErrNoTopic = errors.New("memory bus: message kind has no topic")

type delivery struct {
	topic string
	body  []byte
}

// Bus is an in-process message bus. Messages go through the saga codec on the
// way in and out, so subscribers see exactly what a broker would hand them.
// Each subscription is its own ordered, unbounded queue, like a consumer
// group. Publish never waits on a subscriber, so handlers may publish freely.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]*Subscription
	log    zerolog.Logger
	m      *metrics.Metrics
	copies int
}

type BusOption func(*Bus)

// WithRedelivery hands every message to every subscriber n times in a row,
// which is how at-least-once delivery looks on a bad day.
func WithRedelivery(n int) BusOption {
	return func(b *Bus) {
		if n > 1 {
			b.copies = n
		}
	}
}

func WithBusMetrics(m *metrics.Metrics) BusOption {
	return func(b *Bus) { b.m = m }
}

func NewBus(log zerolog.Logger, opts ...BusOption) *Bus {
	b := &Bus{subs: map[string][]*Subscription{}, log: log, copies: 1}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Bus) Publish(_ context.Context, msg saga.Message) error {
	topic := msg.Kind().Topic()
	if topic == "" {
		return errors.Wrapf(ErrNoTopic, "%s", msg.Kind())
	}
	body, err := saga.Encode(msg)
	if err != nil {
		return err
	}

	b.mu.RLock()
	subs := b.subs[topic]
	b.mu.RUnlock()

	d := delivery{topic: topic, body: body}
	for _, s := range subs {
		s.enqueue(d, b.copies)
	}
	return nil
}

// Subscribe registers a handler for the given topics. Nothing is delivered
// until the returned loop runs; messages published before Subscribe are not
// seen.
func (b *Bus) Subscribe(name string, h saga.Handler, topics ...string) *Subscription {
	s := &Subscription{
		name: name,
		h:    h,
		wake: make(chan struct{}, 1),
		log:  b.log.With().Str("consumer", name).Logger(),
		m:    b.m,
	}
	b.mu.Lock()
	for _, t := range topics {
		b.subs[t] = append(b.subs[t], s)
	}
	b.mu.Unlock()
	return s
}

// Subscription is a runner.Loop draining one subscriber queue.
type Subscription struct {
	name string
	h    saga.Handler
	log  zerolog.Logger
	m    *metrics.Metrics

	mu    sync.Mutex
	queue []delivery
	wake  chan struct{}
}

func (s *Subscription) Name() string { return s.name }

func (s *Subscription) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
		}
		for {
			d, ok := s.next()
			if !ok {
				break
			}
			if ctx.Err() != nil {
				return nil
			}
			s.handle(ctx, d)
		}
	}
}

func (s *Subscription) enqueue(d delivery, copies int) {
	s.mu.Lock()
	for i := 0; i < copies; i++ {
		s.queue = append(s.queue, d)
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) next() (delivery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return delivery{}, false
	}
	d := s.queue[0]
	s.queue[0] = delivery{}
	s.queue = s.queue[1:]
	return d, true
}

// Pending is the number of deliveries not yet handed to the handler.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Processing faults are logged and counted; the loop keeps going.
func (s *Subscription) handle(ctx context.Context, d delivery) {
	msg, err := saga.Decode(d.topic, d.body)
	if err != nil {
		s.log.Error().Err(err).Str("topic", d.topic).Msg("dropping undecodable message")
		s.m.Message(s.name, "unknown", metrics.OutcomeDecode)
		return
	}
	if err := s.h(ctx, msg); err != nil {
		s.log.Error().Err(err).
			Str("topic", d.topic).
			Str("order_id", msg.CorrelationID().String()).
			Stringer("kind", msg.Kind()).
			Msg("handler failed")
		s.m.Message(s.name, msg.Kind().String(), metrics.OutcomeError)
		return
	}
	s.m.Message(s.name, msg.Kind().String(), metrics.OutcomeOK)
}
