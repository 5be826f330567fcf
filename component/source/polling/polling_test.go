package polling

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RuiFG/streaming/streaming-polling/common/status"
	"github.com/RuiFG/streaming/streaming-polling/element"
	"github.com/RuiFG/streaming/streaming-polling/log"
	"github.com/RuiFG/streaming/streaming-polling/mapping"
	"github.com/RuiFG/streaming/streaming-polling/supplier"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type closeableSupplier struct {
	supplier.Supplier
	closed   int32
	closeErr error
}

func (c *closeableSupplier) Close() error {
	atomic.AddInt32(&c.closed, 1)
	return c.closeErr
}

func newStringSource(t *testing.T, output element.Output[string], opts ...WithOptions[string]) *Source[string] {
	src, err := New[string]("numbers", output, append([]WithOptions[string]{WithMapping[string](mapping.String)}, opts...)...)
	require.Nil(t, err)
	return src
}

func counter(scope tally.TestScope, name string) int64 {
	for _, c := range scope.Snapshot().Counters() {
		if c.Name() == "polling."+name {
			return c.Value()
		}
	}
	return 0
}

func TestRunCycleSkipsNullsInOrder(t *testing.T) {
	var (
		nilPointer *int
		nilMap     map[string]int
	)
	scope := tally.NewTestScope("", nil)
	output := &element.Collect[string]{}
	src := newStringSource(t, output,
		WithSupplier[string](supplier.Static(5, nil, 7, nilPointer, nil, 9, nilMap)),
		WithScope[string](scope))
	require.Nil(t, src.Initialize(context.Background()))

	assert.Nil(t, src.RunCycle(context.Background()))
	assert.Equal(t, []string{"5", "7", "9"}, output.Values)
	assert.Equal(t, status.Idle, src.Status())

	assert.Equal(t, int64(1), counter(scope, "cycles"))
	assert.Equal(t, int64(3), counter(scope, "submissions"))
	assert.Equal(t, int64(4), counter(scope, "skipped_nulls"))
	assert.Equal(t, int64(0), counter(scope, "cycle_errors"))
}

func TestRunCycleDrainsEachCycleInTurn(t *testing.T) {
	output := &element.Collect[string]{}
	calls := 0
	src := newStringSource(t, output, WithSupplier[string](supplier.Func(func(_ context.Context) (supplier.Iterator, error) {
		calls++
		return supplier.Slice(calls*10, calls*10+1), nil
	})))
	require.Nil(t, src.Initialize(context.Background()))
	for i := 0; i < 3; i++ {
		require.Nil(t, src.RunCycle(context.Background()))
	}
	assert.Equal(t, []string{"10", "11", "20", "21", "30", "31"}, output.Values)
}

func TestCancelBeforeKthItem(t *testing.T) {
	var src *Source[string]
	var submitted []string
	cancelled := false
	output := element.OutputFunc[string](func(value string) error {
		submitted = append(submitted, value)
		if len(submitted) == 2 && !cancelled {
			cancelled = true
			src.Cancel()
		}
		return nil
	})
	src = newStringSource(t, output, WithSupplier[string](supplier.Static(1, 2, 3, 4, 5)))
	require.Nil(t, src.Initialize(context.Background()))

	assert.Nil(t, src.RunCycle(context.Background()))
	assert.Equal(t, []string{"1", "2"}, submitted)

	// the cancel request was consumed by the interrupted cycle
	submitted = nil
	src.Cancel()
	assert.Nil(t, src.RunCycle(context.Background()))
	assert.Empty(t, submitted)
	assert.Nil(t, src.RunCycle(context.Background()))
	assert.Len(t, submitted, 5)
}

func TestContextCancelStopsUnboundedCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	output := element.OutputFunc[string](func(value string) error {
		if n++; n == 100 {
			cancel()
		}
		return nil
	})
	src := newStringSource(t, output, WithSupplier[string](supplier.Func(func(_ context.Context) (supplier.Iterator, error) {
		i := 0
		return supplier.Generator(func() (any, bool, error) {
			i++
			return i, true, nil
		}), nil
	})))
	require.Nil(t, src.Initialize(context.Background()))
	assert.Nil(t, src.RunCycle(ctx))
	assert.Equal(t, 100, n)
}

func TestShutdownTwice(t *testing.T) {
	s := &closeableSupplier{Supplier: supplier.Static(1)}
	src := newStringSource(t, &element.Collect[string]{}, WithSupplier[string](s))
	require.Nil(t, src.Initialize(context.Background()))

	assert.Nil(t, src.Shutdown())
	assert.Nil(t, src.Shutdown())
	assert.Equal(t, int32(1), atomic.LoadInt32(&s.closed))
	assert.Equal(t, status.Shutdown, src.Status())
	assert.Equal(t, ErrClosed, src.RunCycle(context.Background()))
	assert.Equal(t, ErrClosed, src.Initialize(context.Background()))
}

func TestShutdownBeforeInitialize(t *testing.T) {
	s := &closeableSupplier{Supplier: supplier.Static(1)}
	src := newStringSource(t, &element.Collect[string]{}, WithSupplier[string](s))
	assert.Nil(t, src.Shutdown())
	assert.Equal(t, int32(0), atomic.LoadInt32(&s.closed))
	assert.Equal(t, ErrClosed, src.Initialize(context.Background()))
}

func TestShutdownWithoutCloser(t *testing.T) {
	src := newStringSource(t, &element.Collect[string]{}, WithSupplier[string](supplier.Static(1)))
	require.Nil(t, src.Initialize(context.Background()))
	assert.Nil(t, src.Shutdown())
}

func TestShutdownErrorIsReported(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cause := errors.New("disk gone")
	s := &closeableSupplier{Supplier: supplier.Static(1), closeErr: cause}
	src := newStringSource(t, &element.Collect[string]{}, WithSupplier[string](s), WithLogger[string](log.Wrap(zap.New(core))))
	require.Nil(t, src.Initialize(context.Background()))

	err := src.Shutdown()
	var shutdownErr *ShutdownError
	require.True(t, errors.As(err, &shutdownErr))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, status.Shutdown, src.Status())
	assert.Equal(t, 1, logs.FilterMessage("failed to release supplier.").Len())

	assert.Nil(t, src.Shutdown())
	assert.Equal(t, int32(1), atomic.LoadInt32(&s.closed))
}

func TestShutdownDuringCycleDoesNotWait(t *testing.T) {
	s := &closeableSupplier{Supplier: supplier.Func(func(_ context.Context) (supplier.Iterator, error) {
		return supplier.Generator(func() (any, bool, error) { return "tick", true, nil }), nil
	})}
	entered := make(chan struct{})
	release := make(chan struct{})
	var submissions int32
	output := element.OutputFunc[string](func(value string) error {
		if atomic.AddInt32(&submissions, 1) == 1 {
			close(entered)
			<-release
		}
		return nil
	})
	src := newStringSource(t, output, WithSupplier[string](s))
	require.Nil(t, src.Initialize(context.Background()))

	done := make(chan error, 1)
	go func() { done <- src.RunCycle(context.Background()) }()
	<-entered
	assert.Equal(t, status.Polling, src.Status())

	shutdown := make(chan error, 1)
	go func() { shutdown <- src.Shutdown() }()
	select {
	case err := <-shutdown:
		assert.Nil(t, err)
	case <-time.After(time.Second):
		t.Fatal("shutdown waited for the in-flight cycle")
	}
	close(release)
	select {
	case err := <-done:
		assert.Nil(t, err)
	case <-time.After(time.Second):
		t.Fatal("cycle never observed the shutdown")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&submissions))
	assert.Equal(t, int32(1), atomic.LoadInt32(&s.closed))
	assert.Equal(t, status.Shutdown, src.Status())
}

func TestSupplierErrorOnThirdCycle(t *testing.T) {
	cause := errors.New("upstream unavailable")
	calls := 0
	output := &element.Collect[string]{}
	scope := tally.NewTestScope("", nil)
	src := newStringSource(t, output, WithScope[string](scope), WithSupplier[string](supplier.Func(func(_ context.Context) (supplier.Iterator, error) {
		calls++
		if calls == 3 {
			return nil, cause
		}
		return supplier.Slice(calls), nil
	})))
	require.Nil(t, src.Initialize(context.Background()))
	require.Nil(t, src.RunCycle(context.Background()))
	require.Nil(t, src.RunCycle(context.Background()))

	err := src.RunCycle(context.Background())
	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, int64(3), cycleErr.Cycle)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, []string{"1", "2"}, output.Values)
	assert.Equal(t, status.Idle, src.Status())

	assert.Nil(t, src.RunCycle(context.Background()))
	assert.Equal(t, []string{"1", "2", "4"}, output.Values)
	assert.Equal(t, int64(1), counter(scope, "cycle_errors"))
}

func TestSequenceErrorKeepsEarlierSubmissions(t *testing.T) {
	cause := errors.New("torn read")
	output := &element.Collect[string]{}
	src := newStringSource(t, output, WithSupplier[string](supplier.Func(func(_ context.Context) (supplier.Iterator, error) {
		n := 0
		return supplier.Generator(func() (any, bool, error) {
			if n++; n > 2 {
				return nil, false, cause
			}
			return n, true, nil
		}), nil
	})))
	require.Nil(t, src.Initialize(context.Background()))
	err := src.RunCycle(context.Background())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, []string{"1", "2"}, output.Values)
}

func TestNilIteratorIsAnEmptyCycle(t *testing.T) {
	output := &element.Collect[string]{}
	src := newStringSource(t, output, WithSupplier[string](supplier.Func(func(_ context.Context) (supplier.Iterator, error) {
		return nil, nil
	})))
	require.Nil(t, src.Initialize(context.Background()))
	assert.Nil(t, src.RunCycle(context.Background()))
	assert.Empty(t, output.Values)
	assert.Equal(t, status.Idle, src.Status())
}

func TestMappingAndOutputErrors(t *testing.T) {
	mapErr := errors.New("bad item")
	src, err := New[string]("mapping", &element.Collect[string]{},
		WithSupplier[string](supplier.Static("ok", "bad")),
		WithMapping[string](func(item any) (string, error) {
			if item == "bad" {
				return "", mapErr
			}
			return item.(string), nil
		}))
	require.Nil(t, err)
	require.Nil(t, src.Initialize(context.Background()))
	assert.True(t, errors.Is(src.RunCycle(context.Background()), mapErr))

	submitErr := errors.New("queue full")
	src = newStringSource(t, element.OutputFunc[string](func(string) error { return submitErr }),
		WithSupplier[string](supplier.Static(1)))
	require.Nil(t, src.Initialize(context.Background()))
	assert.True(t, errors.Is(src.RunCycle(context.Background()), submitErr))
}

func TestInitializationErrors(t *testing.T) {
	src, err := New[string]("no-mapping", &element.Collect[string]{}, WithSupplier[string](supplier.Static(1)))
	require.Nil(t, err)
	var initErr *InitializationError
	assert.True(t, errors.As(src.Initialize(context.Background()), &initErr))
	assert.Equal(t, status.Failed, src.Status())
	assert.Equal(t, ErrInitFailed, src.RunCycle(context.Background()))
	assert.Equal(t, ErrAlreadyInitialized, src.Initialize(context.Background()))
	assert.Nil(t, src.Shutdown())

	src = newStringSource(t, &element.Collect[string]{})
	assert.True(t, errors.As(src.Initialize(context.Background()), &initErr))

	src = newStringSource(t, &element.Collect[string]{}, WithDescriptor[string]([]byte("kind: no-such-kind\n")))
	err = src.Initialize(context.Background())
	assert.True(t, errors.As(err, &initErr))
	assert.True(t, errors.Is(err, supplier.ErrUnknownKind))

	src = newStringSource(t, &element.Collect[string]{},
		WithDescriptor[string]([]byte("kind: range\nconfig: {end: 3}\n")),
		WithLibraries[string]("/no/such/library.so"))
	err = src.Initialize(context.Background())
	assert.True(t, errors.As(err, &initErr))
	assert.True(t, errors.Is(err, supplier.ErrLibraryNotFound))
}

func TestInitializeFromDescriptor(t *testing.T) {
	output := &element.Collect[string]{}
	src := newStringSource(t, output, WithDescriptor[string]([]byte("kind: static\nconfig:\n  values: [5, null, 7, null, null, 9]\n")))
	assert.Equal(t, ErrNotInitialized, src.RunCycle(context.Background()))
	require.Nil(t, src.Initialize(context.Background()))
	assert.Equal(t, ErrAlreadyInitialized, src.Initialize(context.Background()))
	require.Nil(t, src.RunCycle(context.Background()))
	assert.Equal(t, []string{"5", "7", "9"}, output.Values)
}

func TestConcurrentCycleIsRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	output := element.OutputFunc[string](func(string) error {
		close(entered)
		<-release
		return nil
	})
	src := newStringSource(t, output, WithSupplier[string](supplier.Static(1)))
	require.Nil(t, src.Initialize(context.Background()))
	done := make(chan error, 1)
	go func() { done <- src.RunCycle(context.Background()) }()
	<-entered
	assert.Equal(t, ErrCycleInProgress, src.RunCycle(context.Background()))
	close(release)
	assert.Nil(t, <-done)
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New[string]("x", nil)
	assert.NotNil(t, err)
	_, err = New[string]("x", &element.Collect[string]{}, WithSupplier[string](nil))
	assert.NotNil(t, err)
	_, err = New[string]("x", &element.Collect[string]{}, WithDescriptor[string](nil))
	assert.NotNil(t, err)

	src, err := New[string]("", &element.Collect[string]{})
	require.Nil(t, err)
	assert.Contains(t, src.Name(), "polling-")
}
