package nutsdb

import (
	"github.com/RuiFG/streaming/streaming-polling/element"
	"github.com/RuiFG/streaming/streaming-polling/store"
	"github.com/pkg/errors"
)

// Sink appends every value to a bucket of a durable store.
type Sink struct {
	backend store.Backend
	bucket  string
	owned   bool
}

var _ element.Output[[]byte] = &Sink{}

func (s *Sink) Submit(value []byte) error {
	if _, err := s.backend.Append(s.bucket, value); err != nil {
		return errors.WithMessage(err, "failed to store value")
	}
	return nil
}

// Close closes the backend only if the sink opened it.
func (s *Sink) Close() error {
	if s.owned {
		return s.backend.Close()
	}
	return nil
}

func NewWithBackend(backend store.Backend, bucket string) (*Sink, error) {
	if backend == nil {
		return nil, errors.New("backend can't be nil")
	}
	if bucket == "" {
		return nil, errors.New("bucket can't be empty")
	}
	return &Sink{backend: backend, bucket: bucket}, nil
}

func New(dir string, bucket string) (*Sink, error) {
	backend, err := store.NewFSBackend(dir)
	if err != nil {
		return nil, err
	}
	sink, err := NewWithBackend(backend, bucket)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	sink.owned = true
	return sink, nil
}
