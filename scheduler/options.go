package scheduler

import (
	"time"

	"github.com/RuiFG/streaming/streaming-polling/log"
	"github.com/pkg/errors"
)

type Mode int

const (
	// FixedDelay waits Period after a cycle returns before starting the next one.
	FixedDelay Mode = iota
	// FixedRate starts cycles every Period; overrunning cycles delay, never overlap.
	FixedRate
)

type ErrorPolicy int

const (
	ContinueOnError ErrorPolicy = iota
	StopOnError
)

type options struct {
	period       time.Duration
	initialDelay time.Duration
	iterations   int
	mode         Mode
	errorPolicy  ErrorPolicy
	logger       log.Logger
}

type WithOptions func(opts *options) error

func WithPeriod(period time.Duration) WithOptions {
	return func(opts *options) error {
		if period < 0 {
			return errors.Errorf("period %s can't be negative", period)
		}
		opts.period = period
		return nil
	}
}

func WithInitialDelay(delay time.Duration) WithOptions {
	return func(opts *options) error {
		if delay < 0 {
			return errors.Errorf("initial delay %s can't be negative", delay)
		}
		opts.initialDelay = delay
		return nil
	}
}

// WithIterations bounds the number of cycles; 0 polls until stopped.
func WithIterations(iterations int) WithOptions {
	return func(opts *options) error {
		if iterations < 0 {
			return errors.Errorf("iterations %d can't be negative", iterations)
		}
		opts.iterations = iterations
		return nil
	}
}

func WithMode(mode Mode) WithOptions {
	return func(opts *options) error {
		if mode != FixedDelay && mode != FixedRate {
			return errors.Errorf("unknown mode %d", mode)
		}
		opts.mode = mode
		return nil
	}
}

func WithErrorPolicy(policy ErrorPolicy) WithOptions {
	return func(opts *options) error {
		opts.errorPolicy = policy
		return nil
	}
}

func WithLogger(logger log.Logger) WithOptions {
	return func(opts *options) error {
		opts.logger = logger
		return nil
	}
}

// ParseMode maps "fixed-delay" and "fixed-rate".
func ParseMode(text string) (Mode, error) {
	switch text {
	case "", "fixed-delay":
		return FixedDelay, nil
	case "fixed-rate":
		return FixedRate, nil
	default:
		return FixedDelay, errors.Errorf("unknown poller mode %q", text)
	}
}

func ParseErrorPolicy(text string) (ErrorPolicy, error) {
	switch text {
	case "", "continue":
		return ContinueOnError, nil
	case "stop":
		return StopOnError, nil
	default:
		return ContinueOnError, errors.Errorf("unknown error policy %q", text)
	}
}
