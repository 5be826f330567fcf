package runtime

import (
	"context"
	"sync"

	"github.com/RuiFG/streaming/streaming-polling/component"
	"github.com/RuiFG/streaming/streaming-polling/log"
	"github.com/RuiFG/streaming/streaming-polling/scheduler"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

type registration struct {
	name     string
	operator component.Operator
	options  []scheduler.WithOptions
}

// Environment drives every registered operator with its own poller.
type Environment struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger log.Logger

	mutex         sync.Mutex
	registrations []*registration
	started       bool
	stopped       bool

	errorChan chan error
	done      chan struct{}
	errOnce   sync.Once
	err       error
}

func (e *Environment) Register(name string, operator component.Operator, withOptions ...scheduler.WithOptions) error {
	if name == "" {
		return errors.New("operator name can't be empty")
	}
	if operator == nil {
		return errors.Errorf("operator %s can't be nil", name)
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.started {
		return errors.Errorf("can't register %s, environment already started", name)
	}
	for _, r := range e.registrations {
		if r.name == name {
			return errors.Errorf("operator %s already registered", name)
		}
	}
	e.registrations = append(e.registrations, &registration{name: name, operator: operator, options: withOptions})
	return nil
}

// Start initializes every operator and launches their pollers. If one operator
// fails to initialize, the others are shut down and the error is returned.
func (e *Environment) Start(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.started {
		return errors.New("environment already started")
	}
	if e.stopped {
		return errors.New("environment already stopped")
	}
	if len(e.registrations) <= 0 {
		return errors.New("no operator registered")
	}
	e.started = true

	//1. init all operator
	for _, r := range e.registrations {
		if err := r.operator.Initialize(ctx); err != nil {
			e.shutdownAll()
			close(e.done)
			return errors.WithMessagef(err, "failed to init operator %s", r.name)
		}
	}

	//2. build pollers
	pollers := make([]*scheduler.Poller, 0, len(e.registrations))
	for _, r := range e.registrations {
		withOptions := append([]scheduler.WithOptions{scheduler.WithLogger(e.logger.Named(r.name))}, r.options...)
		poller, err := scheduler.New(r.operator, withOptions...)
		if err != nil {
			e.shutdownAll()
			close(e.done)
			return errors.WithMessagef(err, "failed to create poller for %s", r.name)
		}
		pollers = append(pollers, poller)
	}

	//3. start all pollers
	e.ctx, e.cancel = context.WithCancel(ctx)
	wg := &sync.WaitGroup{}
	for i, poller := range pollers {
		wg.Add(1)
		name, poller := e.registrations[i].name, poller
		go func() {
			defer wg.Done()
			if err := <-poller.Start(e.ctx); err != nil {
				e.errorChan <- errors.WithMessagef(err, "operator %s", name)
			}
		}()
	}
	e.startMonitor(wg)
	e.logger.Infow("environment started.", "operators", len(pollers))
	return nil
}

func (e *Environment) startMonitor(wg *sync.WaitGroup) {
	go func() {
		wg.Wait()
		close(e.errorChan)
	}()
	go func() {
		for err := range e.errorChan {
			e.errOnce.Do(func() { e.err = err })
			e.logger.Errorw("monitored poller error.", "err", err)
			e.cancel()
		}
		close(e.done)
	}()
}

// Stop cancels every operator, waits for the pollers to return and shuts the
// operators down. Calling it more than once is a no-op.
func (e *Environment) Stop() error {
	e.mutex.Lock()
	if e.stopped {
		e.mutex.Unlock()
		return nil
	}
	e.stopped = true
	running := e.started && e.cancel != nil
	if !e.started {
		close(e.done)
	}
	e.mutex.Unlock()

	for _, r := range e.registrations {
		r.operator.Cancel()
	}
	if running {
		e.cancel()
		<-e.done
	}
	return e.shutdownAll()
}

func (e *Environment) shutdownAll() error {
	var err error
	for _, r := range e.registrations {
		if shutdownErr := r.operator.Shutdown(); shutdownErr != nil {
			err = multierr.Append(err, errors.WithMessagef(shutdownErr, "failed to shutdown %s", r.name))
		}
	}
	return err
}

// Done is closed once every poller has returned.
func (e *Environment) Done() <-chan struct{} {
	return e.done
}

// Err returns the first poller error once Done is closed.
func (e *Environment) Err() error {
	select {
	case <-e.done:
		return e.err
	default:
		return nil
	}
}

func New() *Environment {
	return &Environment{
		logger:    log.Global().Named("environment"),
		errorChan: make(chan error),
		done:      make(chan struct{}),
	}
}
