package logger

import (
	"github.com/RuiFG/streaming/streaming-polling/element"
	"github.com/RuiFG/streaming/streaming-polling/log"
)

type sink[T any] struct {
	logger log.Logger
	format func(T) any
}

func (s *sink[T]) Submit(value T) error {
	s.logger.Infow("emit.", "value", s.format(value))
	return nil
}

// New logs every submitted value at info level.
func New[T any](logger log.Logger) element.Output[T] {
	if logger == nil {
		logger = log.Global().Named("sink.logger")
	}
	return &sink[T]{logger: logger, format: func(v T) any { return v }}
}

// NewBytes logs byte values as text.
func NewBytes(logger log.Logger) element.Output[[]byte] {
	if logger == nil {
		logger = log.Global().Named("sink.logger")
	}
	return &sink[[]byte]{logger: logger, format: func(v []byte) any { return string(v) }}
}
