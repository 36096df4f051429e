package memory

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-saga-orders/internal/saga"
)

// Recorder is a Publisher that keeps what it was given. Setting Err makes
// every Publish fail with it.
type Recorder struct {
	mu   sync.Mutex
	msgs []saga.Message
	Err  error
}

func (r *Recorder) Publish(_ context.Context, msg saga.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *Recorder) Messages() []saga.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]saga.Message(nil), r.msgs...)
}

func (r *Recorder) Kinds() []saga.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]saga.Kind, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Kind())
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.msgs = nil
	r.mu.Unlock()
}
