// Package supplier holds the data suppliers a polling source pulls from.
//
// A Supplier is invoked once per cycle and hands back a lazy Iterator. The
// iterator may be finite or unbounded; a nil Value is a null item.
package supplier

import (
	"context"
)

type Iterator interface {
	// Next advances to the next item, returning false at the end of the
	// sequence or on error.
	Next() bool
	Value() any
	Err() error
}

type Supplier interface {
	Get(ctx context.Context) (Iterator, error)
}

// Func adapts a plain function to a Supplier.
type Func func(ctx context.Context) (Iterator, error)

func (f Func) Get(ctx context.Context) (Iterator, error) {
	return f(ctx)
}

// Static supplies the same values on every cycle.
func Static(values ...any) Supplier {
	return Func(func(_ context.Context) (Iterator, error) {
		return Slice(values...), nil
	})
}

type sliceIterator struct {
	values []any
	index  int
}

func (s *sliceIterator) Next() bool {
	if s.index >= len(s.values) {
		return false
	}
	s.index++
	return true
}

func (s *sliceIterator) Value() any {
	return s.values[s.index-1]
}

func (s *sliceIterator) Err() error { return nil }

// Slice iterates over values in order.
func Slice(values ...any) Iterator {
	return &sliceIterator{values: values}
}

// GeneratorFn produces the next item; ok=false ends the sequence.
type GeneratorFn func() (item any, ok bool, err error)

type generator struct {
	fn    GeneratorFn
	value any
	err   error
	done  bool
}

func (g *generator) Next() bool {
	if g.done {
		return false
	}
	item, ok, err := g.fn()
	if err != nil || !ok {
		g.err, g.done, g.value = err, true, nil
		return false
	}
	g.value = item
	return true
}

func (g *generator) Value() any { return g.value }

func (g *generator) Err() error { return g.err }

// Generator builds a lazily evaluated, possibly unbounded iterator.
func Generator(fn GeneratorFn) Iterator {
	return &generator{fn: fn}
}
