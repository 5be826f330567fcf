package tester

import (
	"sync"

	"github.com/stretchr/testify/assert"
)

// Condition observes every submission reaching a Probe.
type Condition[T any] interface {
	Observe(value T)
	// Valid reports whether the condition is currently satisfied.
	Valid() bool
	// Failed reports whether the condition can no longer be satisfied.
	Failed() bool
}

type tupleCount[T any] struct {
	mutex    sync.Mutex
	expected int
	exact    bool
	count    int
}

func (c *tupleCount[T]) Observe(_ T) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.count++
}

func (c *tupleCount[T]) Valid() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.exact {
		return c.count == c.expected
	}
	return c.count >= c.expected
}

func (c *tupleCount[T]) Failed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.exact && c.count > c.expected
}

// TupleCount expects exactly n submissions, or at least n when exact is false.
func TupleCount[T any](n int, exact bool) Condition[T] {
	return &tupleCount[T]{expected: n, exact: exact}
}

type contents[T any] struct {
	mutex    sync.Mutex
	ordered  bool
	expected []T
	received []T
	failed   bool
}

func (c *contents[T]) Observe(value T) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.received = append(c.received, value)
	if c.failed {
		return
	}
	if len(c.received) > len(c.expected) {
		c.failed = true
		return
	}
	if c.ordered {
		c.failed = !assert.ObjectsAreEqual(c.expected[len(c.received)-1], value)
		return
	}
	c.failed = !containsAll(c.expected, c.received)
}

func (c *contents[T]) Valid() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return !c.failed && len(c.received) == len(c.expected)
}

func (c *contents[T]) Failed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.failed
}

// containsAll reports whether every received value can be matched to a
// distinct expected value.
func containsAll[T any](expected, received []T) bool {
	used := make([]bool, len(expected))
	for _, r := range received {
		found := false
		for i, e := range expected {
			if !used[i] && assert.ObjectsAreEqual(e, r) {
				used[i], found = true, true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Contents expects exactly the given values, in order when ordered is true.
func Contents[T any](ordered bool, expected ...T) Condition[T] {
	return &contents[T]{ordered: ordered, expected: expected}
}

type predicate[T any] struct {
	mutex  sync.Mutex
	fn     func(T) bool
	seen   int
	failed bool
}

func (p *predicate[T]) Observe(value T) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.seen++
	if !p.failed && !p.fn(value) {
		p.failed = true
	}
}

func (p *predicate[T]) Valid() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.seen > 0 && !p.failed
}

func (p *predicate[T]) Failed() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.failed
}

// Predicate expects every submission to satisfy fn.
func Predicate[T any](fn func(T) bool) Condition[T] {
	return &predicate[T]{fn: fn}
}
