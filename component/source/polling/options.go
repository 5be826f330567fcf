package polling

import (
	"github.com/RuiFG/streaming/streaming-polling/log"
	"github.com/RuiFG/streaming/streaming-polling/mapping"
	"github.com/RuiFG/streaming/streaming-polling/supplier"
	"github.com/pkg/errors"
	"github.com/uber-go/tally/v4"
)

type options[OUT any] struct {
	supplier   supplier.Supplier
	descriptor []byte
	libraries  []string
	mapping    mapping.Mapping[OUT]
	scope      tally.Scope
	logger     log.Logger
}

type WithOptions[OUT any] func(opts *options[OUT]) error

// WithSupplier injects a ready supplier; it wins over WithDescriptor.
func WithSupplier[OUT any](s supplier.Supplier) WithOptions[OUT] {
	return func(opts *options[OUT]) error {
		if s == nil {
			return errors.New("supplier can't be nil")
		}
		opts.supplier = s
		return nil
	}
}

// WithDescriptor sets the logic descriptor resolved at Initialize.
func WithDescriptor[OUT any](descriptor []byte) WithOptions[OUT] {
	return func(opts *options[OUT]) error {
		if len(descriptor) == 0 {
			return errors.New("descriptor can't be empty")
		}
		opts.descriptor = descriptor
		return nil
	}
}

// WithLibraries lists the auxiliary libraries loaded before the descriptor is resolved.
func WithLibraries[OUT any](paths ...string) WithOptions[OUT] {
	return func(opts *options[OUT]) error {
		opts.libraries = append(opts.libraries, paths...)
		return nil
	}
}

func WithMapping[OUT any](m mapping.Mapping[OUT]) WithOptions[OUT] {
	return func(opts *options[OUT]) error {
		opts.mapping = m
		return nil
	}
}

func WithScope[OUT any](scope tally.Scope) WithOptions[OUT] {
	return func(opts *options[OUT]) error {
		if scope == nil {
			return errors.New("scope can't be nil")
		}
		opts.scope = scope
		return nil
	}
}

func WithLogger[OUT any](logger log.Logger) WithOptions[OUT] {
	return func(opts *options[OUT]) error {
		if logger == nil {
			return errors.New("logger can't be nil")
		}
		opts.logger = logger
		return nil
	}
}
