package runner

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fnLoop struct {
	name string
	fn   func(ctx context.Context) error
}

func (f fnLoop) Name() string                  { return f.name }
func (f fnLoop) Run(ctx context.Context) error { return f.fn(ctx) }

func untilDone(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func TestSupervisor_FirstFailureCancelsSiblings(t *testing.T) {
	boom := errors.New("boom")
	stopped := make(chan struct{})

	s := NewSupervisor(zerolog.Nop(),
		fnLoop{name: "steady", fn: func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)
			return nil
		}},
		fnLoop{name: "broken", fn: func(context.Context) error { return boom }},
	)

	err := s.Run(context.Background())
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "loop broken")

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("sibling loop was not cancelled")
	}
}

func TestSupervisor_ParentCancelIsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSupervisor(zerolog.Nop())
	s.Add(fnLoop{name: "a", fn: untilDone}, fnLoop{name: "b", fn: untilDone})

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("supervisor did not return")
	}
}

func TestSupervisor_PanicBecomesError(t *testing.T) {
	s := NewSupervisor(zerolog.Nop(),
		fnLoop{name: "a", fn: untilDone},
		fnLoop{name: "p", fn: func(context.Context) error { panic("bad state") }},
	)
	err := s.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "panic: bad state")
	require.Contains(t, err.Error(), "loop p")

	// the recovered panic carries its own stack for %+v
	_, hasStack := errors.Cause(err).(interface{ StackTrace() errors.StackTrace })
	require.True(t, hasStack)
}
