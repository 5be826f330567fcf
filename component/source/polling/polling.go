// Package polling adapts a pull-based supplier into a push-based source.
//
// A Source is driven from outside: a poller calls RunCycle on its own
// schedule, the runtime calls Cancel and Shutdown. The source starts no
// goroutines of its own.
package polling

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RuiFG/streaming/streaming-polling/common/safe"
	"github.com/RuiFG/streaming/streaming-polling/common/status"
	"github.com/RuiFG/streaming/streaming-polling/component"
	"github.com/RuiFG/streaming/streaming-polling/element"
	"github.com/RuiFG/streaming/streaming-polling/log"
	"github.com/RuiFG/streaming/streaming-polling/supplier"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uber-go/tally/v4"
)

type Source[OUT any] struct {
	options[OUT]
	name   string
	output element.Output[OUT]

	status    status.Status
	cancelled atomic.Bool
	cycle     atomic.Int64

	supplierMutex sync.Mutex
	supplier      supplier.Supplier
	released      bool

	cycles        tally.Counter
	submissions   tally.Counter
	skippedNulls  tally.Counter
	cycleErrors   tally.Counter
	cancellations tally.Counter
	cycleDuration tally.Timer
}

var _ component.Operator = &Source[any]{}

func (s *Source[OUT]) Name() string {
	return s.name
}

func (s *Source[OUT]) Status() status.Status {
	return status.Load(&s.status)
}

// Initialize loads the auxiliary libraries and resolves the supplier. It
// runs once; any failure leaves the source in the terminal Failed state.
func (s *Source[OUT]) Initialize(ctx context.Context) error {
	if !status.CAP(&s.status, status.Created, status.Initializing) {
		if status.Load(&s.status) == status.Shutdown {
			return ErrClosed
		}
		return ErrAlreadyInitialized
	}
	resolved, err := s.resolve(ctx)
	if err != nil {
		status.CAP(&s.status, status.Initializing, status.Failed)
		s.logger.Errorw("failed to initialize.", "err", err)
		return &InitializationError{Source: s.name, Err: err}
	}

	s.supplierMutex.Lock()
	if status.Load(&s.status) == status.Shutdown {
		s.supplierMutex.Unlock()
		s.release(resolved)
		return ErrClosed
	}
	s.supplier = resolved
	s.supplierMutex.Unlock()

	if !status.CAP(&s.status, status.Initializing, status.Idle) {
		return ErrClosed
	}
	s.logger.Info("initialized.")
	return nil
}

func (s *Source[OUT]) resolve(ctx context.Context) (supplier.Supplier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.mapping == nil {
		return nil, errors.New("conversion mapping is required")
	}
	if len(s.libraries) > 0 {
		if err := supplier.LoadLibraries(s.libraries); err != nil {
			return nil, err
		}
	}
	if s.options.supplier != nil {
		return s.options.supplier, nil
	}
	if len(s.descriptor) == 0 {
		return nil, errors.New("neither supplier nor descriptor is set")
	}
	return supplier.Resolve(s.descriptor)
}

// RunCycle invokes the supplier once and drains its sequence into the
// output. Cancellation is checked before every item; a cancelled cycle
// returns nil. Errors are returned as *CycleError and never retried.
func (s *Source[OUT]) RunCycle(ctx context.Context) (err error) {
	if !status.CAP(&s.status, status.Idle, status.Polling) {
		switch status.Load(&s.status) {
		case status.Created, status.Initializing:
			return ErrNotInitialized
		case status.Polling:
			return ErrCycleInProgress
		case status.Failed:
			return ErrInitFailed
		default:
			return ErrClosed
		}
	}
	defer status.CAP(&s.status, status.Polling, status.Idle)

	cycle := s.cycle.Add(1)
	start := time.Now()
	s.cycles.Inc(1)
	defer func() {
		s.cycleDuration.Record(time.Since(start))
		if err != nil {
			s.cycleErrors.Inc(1)
			err = &CycleError{Source: s.name, Cycle: cycle, Err: err}
		}
	}()

	iterator, err := s.supplier.Get(ctx)
	if err != nil {
		return errors.WithMessage(err, "supplier failed")
	}
	if iterator == nil {
		// nothing to emit this cycle
		return nil
	}
	if closer, ok := iterator.(io.Closer); ok {
		defer func() {
			if closeErr := closer.Close(); closeErr != nil {
				s.logger.Warnw("failed to close iterator.", "cycle", cycle, "err", closeErr)
			}
		}()
	}

	for {
		if s.interrupted(ctx) {
			s.cancellations.Inc(1)
			s.logger.Debugw("cycle cancelled.", "cycle", cycle)
			return nil
		}
		if !iterator.Next() {
			if err = iterator.Err(); err != nil {
				return errors.WithMessage(err, "supplier sequence failed")
			}
			return nil
		}
		item := iterator.Value()
		if element.IsNil(item) {
			s.skippedNulls.Inc(1)
			continue
		}
		out, mapErr := s.mapping(item)
		if mapErr != nil {
			return errors.WithMessage(mapErr, "mapping failed")
		}
		if err = s.output.Submit(out); err != nil {
			return errors.WithMessage(err, "submit failed")
		}
		s.submissions.Inc(1)
	}
}

// interrupted consumes a pending Cancel, like a thread interrupt flag.
// Shutdown and a done ctx keep interrupting every later check.
func (s *Source[OUT]) interrupted(ctx context.Context) bool {
	if s.cancelled.CompareAndSwap(true, false) {
		return true
	}
	return status.Load(&s.status) == status.Shutdown || ctx.Err() != nil
}

// Cancel asks the in-flight (or next) cycle to stop before its next item.
func (s *Source[OUT]) Cancel() {
	s.cancelled.Store(true)
}

// Shutdown is terminal and idempotent. It never waits for an in-flight
// cycle; it only interrupts it and releases the supplier, at most once.
func (s *Source[OUT]) Shutdown() error {
	previous := status.Swap(&s.status, status.Shutdown)
	if previous == status.Shutdown {
		return nil
	}
	s.cancelled.Store(true)

	s.supplierMutex.Lock()
	resolved := s.supplier
	release := resolved != nil && !s.released
	s.released = true
	s.supplierMutex.Unlock()

	s.logger.Infow("shutting down.", "from", previous.String())
	if !release {
		return nil
	}
	if err := s.release(resolved); err != nil {
		return &ShutdownError{Source: s.name, Err: err}
	}
	return nil
}

func (s *Source[OUT]) release(resolved supplier.Supplier) error {
	closer, ok := resolved.(io.Closer)
	if !ok {
		return nil
	}
	if err := safe.Run(closer.Close); err != nil {
		s.logger.Warnw("failed to release supplier.", "err", err)
		return err
	}
	return nil
}

// New builds a source writing to output. The supplier is resolved later,
// by Initialize.
func New[OUT any](name string, output element.Output[OUT], withOptions ...WithOptions[OUT]) (*Source[OUT], error) {
	if output == nil {
		return nil, errors.New("output can't be nil")
	}
	if name == "" {
		name = "polling-" + uuid.NewString()
	}
	opts := options[OUT]{scope: tally.NoopScope}
	for _, withOption := range withOptions {
		if err := withOption(&opts); err != nil {
			return nil, errors.WithMessagef(err, "invalid %s options", name)
		}
	}
	if opts.logger == nil {
		opts.logger = log.Global().Named("source." + name)
	}
	scope := opts.scope.SubScope("polling").Tagged(map[string]string{"source": name})
	return &Source[OUT]{
		options:       opts,
		name:          name,
		output:        output,
		status:        status.Created,
		cycles:        scope.Counter("cycles"),
		submissions:   scope.Counter("submissions"),
		skippedNulls:  scope.Counter("skipped_nulls"),
		cycleErrors:   scope.Counter("cycle_errors"),
		cancellations: scope.Counter("cancellations"),
		cycleDuration: scope.Timer("cycle_duration"),
	}, nil
}
