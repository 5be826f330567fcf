package safe

import (
	"fmt"
	"runtime/debug"

	"github.com/pkg/errors"
)

// PanicError carries a recovered panic value and the stack it was raised on.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

func (p *PanicError) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}

// Run calls fn and turns a panic into a *PanicError.
func Run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

func Go(fn func() error) <-chan error {
	c := make(chan error, 1)
	go func() {
		c <- Run(fn)
		close(c)
	}()
	return c
}

func GoChannel(fn func() error, errorChan chan<- error) {
	go func() {
		if err := Run(fn); err != nil {
			errorChan <- err
		}
	}()
}

func GoChannelWithMessage(fn func() error, message string, errorChan chan<- error) {
	go func() {
		if err := Run(fn); err != nil {
			errorChan <- errors.WithMessage(err, message)
		}
	}()
}
