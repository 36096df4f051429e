// Package runner starts long-lived loops and reports how each one ended.
package runner

import (
	"context"
	"runtime/debug"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Loop is a consume-and-react loop. Run blocks until ctx is cancelled or the
// loop cannot continue; a clean shutdown returns nil.
type Loop interface {
	Name() string
	Run(ctx context.Context) error
}

// Result is what a loop reported when it exited.
type Result struct {
	Name string
	Err  error
}

type Supervisor struct {
	log   zerolog.Logger
	loops []Loop
}

func NewSupervisor(log zerolog.Logger, loops ...Loop) *Supervisor {
	return &Supervisor{log: log, loops: loops}
}

func (s *Supervisor) Add(l ...Loop) { s.loops = append(s.loops, l...) }

// Run starts every loop and waits for all of them. The first loop to exit
// cancels the rest; the first non-nil error is returned wrapped with the
// name of the loop that produced it.
func (s *Supervisor) Run(ctx context.Context) error {
	if len(s.loops) == 0 {
		<-ctx.Done()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan Result, len(s.loops))
	for _, l := range s.loops {
		go func(l Loop) {
			results <- Result{Name: l.Name(), Err: runSafe(ctx, l)}
		}(l)
		s.log.Info().Str("loop", l.Name()).Msg("loop started")
	}

	var first error
	for range s.loops {
		r := <-results
		cancel()
		ev := s.log.Info()
		if r.Err != nil {
			ev = s.log.Error().Err(r.Err)
			if first == nil {
				first = errors.Wrapf(r.Err, "loop %s", r.Name)
			}
		}
		ev.Str("loop", r.Name).Msg("loop stopped")
	}
	return first
}

func runSafe(ctx context.Context, l Loop) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("panic: %v\n%s", p, debug.Stack())
		}
	}()
	return l.Run(ctx)
}
