package scheduler

import (
	"context"
	"time"

	"github.com/RuiFG/streaming/streaming-polling/common/safe"
	"github.com/RuiFG/streaming/streaming-polling/log"
	"github.com/pkg/errors"
)

// Cycler is the single call a poller repeats.
type Cycler interface {
	RunCycle(ctx context.Context) error
}

type CyclerFunc func(ctx context.Context) error

func (f CyclerFunc) RunCycle(ctx context.Context) error {
	return f(ctx)
}

// Poller calls a Cycler on a schedule from one goroutine, so cycles never overlap.
type Poller struct {
	options
	cycler Cycler
}

// Run polls until ctx is done, the iterations are used up or, with
// StopOnError, a cycle fails. Panics in a cycle count as cycle errors.
func (p *Poller) Run(ctx context.Context) error {
	if !p.sleep(ctx, p.initialDelay) {
		return nil
	}
	next := time.Now()
	for iteration := 1; p.iterations == 0 || iteration <= p.iterations; iteration++ {
		if ctx.Err() != nil {
			return nil
		}
		next = next.Add(p.period)
		if err := safe.Run(func() error { return p.cycler.RunCycle(ctx) }); err != nil {
			if p.errorPolicy == StopOnError {
				p.logger.Errorw("cycle failed, stop polling.", "iteration", iteration, "err", err)
				return errors.WithMessagef(err, "poller stopped at iteration %d", iteration)
			}
			p.logger.Warnw("cycle failed.", "iteration", iteration, "err", err)
		}
		if p.iterations != 0 && iteration == p.iterations {
			break
		}
		wait := p.period
		if p.mode == FixedRate {
			if wait = time.Until(next); wait < 0 {
				// overran, start now and re-anchor the schedule
				wait, next = 0, time.Now()
			}
		}
		if !p.sleep(ctx, wait) {
			return nil
		}
	}
	p.logger.Debug("iterations exhausted.")
	return nil
}

// Start runs the poller on its own goroutine; the channel yields Run's result.
func (p *Poller) Start(ctx context.Context) <-chan error {
	return safe.Go(func() error { return p.Run(ctx) })
}

func (p *Poller) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func New(cycler Cycler, withOptions ...WithOptions) (*Poller, error) {
	if cycler == nil {
		return nil, errors.New("cycler can't be nil")
	}
	opts := options{}
	for _, withOption := range withOptions {
		if err := withOption(&opts); err != nil {
			return nil, err
		}
	}
	if opts.logger == nil {
		opts.logger = log.Global().Named("poller")
	}
	return &Poller{options: opts, cycler: cycler}, nil
}
