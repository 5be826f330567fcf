package element

// Output is the single downstream channel a source submits converted items to.
// Submit either delivers the value or returns an error synchronously.
type Output[T any] interface {
	Submit(value T) error
}

type OutputFunc[T any] func(value T) error

func (f OutputFunc[T]) Submit(value T) error {
	return f(value)
}

// Collect is an in-memory Output, handy for tests and probes.
type Collect[T any] struct {
	Values []T
}

func (c *Collect[T]) Submit(value T) error {
	c.Values = append(c.Values, value)
	return nil
}
