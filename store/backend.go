package store

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
	"github.com/xujiajun/nutsdb"
)

// Backend is a durable, append-only store of emitted values, one sequence per bucket.
type Backend interface {
	Append(bucket string, value []byte) (uint64, error)
	Range(bucket string, fn func(seq uint64, value []byte) bool) error
	Len(bucket string) (int, error)
	Close() error
}

func formatSeq(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

func parseSeq(key []byte) uint64 {
	if len(key) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key)
}

type fs struct {
	mutex *sync.Mutex
	db    *nutsdb.DB
	//next sequence number per bucket, recovered lazily from disk
	next map[string]uint64
}

func (f *fs) entries(tx *nutsdb.Tx, bucket string) ([]*nutsdb.Entry, error) {
	entries, err := tx.GetAll(bucket)
	if err != nil {
		if errors.Is(err, nutsdb.ErrBucketEmpty) {
			return nil, nil
		}
		return nil, errors.WithMessagef(err, "failed to read bucket %s", bucket)
	}
	return entries, nil
}

func (f *fs) nextSeq(tx *nutsdb.Tx, bucket string) (uint64, error) {
	if seq, ok := f.next[bucket]; ok {
		return seq, nil
	}
	entries, err := f.entries(tx, bucket)
	if err != nil {
		return 0, err
	}
	var seq uint64
	for _, entry := range entries {
		if s := parseSeq(entry.Key) + 1; s > seq {
			seq = s
		}
	}
	return seq, nil
}

func (f *fs) Append(bucket string, value []byte) (uint64, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	var seq uint64
	if err := f.db.Update(func(tx *nutsdb.Tx) (err error) {
		if seq, err = f.nextSeq(tx, bucket); err != nil {
			return err
		}
		return tx.Put(bucket, formatSeq(seq), value, 0)
	}); err != nil {
		return 0, errors.WithMessagef(err, "failed to append to %s", bucket)
	}
	f.next[bucket] = seq + 1
	return seq, nil
}

// Range visits values in sequence order until fn returns false.
func (f *fs) Range(bucket string, fn func(seq uint64, value []byte) bool) error {
	return f.db.View(func(tx *nutsdb.Tx) error {
		entries, err := f.entries(tx, bucket)
		if err != nil {
			return err
		}
		ordered := make(map[uint64][]byte, len(entries))
		var maxSeq uint64
		for _, entry := range entries {
			seq := parseSeq(entry.Key)
			ordered[seq] = entry.Value
			if seq > maxSeq {
				maxSeq = seq
			}
		}
		for seq := uint64(0); len(ordered) > 0 && seq <= maxSeq; seq++ {
			value, ok := ordered[seq]
			if !ok {
				continue
			}
			if !fn(seq, value) {
				return nil
			}
		}
		return nil
	})
}

func (f *fs) Len(bucket string) (int, error) {
	var n int
	err := f.db.View(func(tx *nutsdb.Tx) error {
		entries, err := f.entries(tx, bucket)
		n = len(entries)
		return err
	})
	return n, err
}

func (f *fs) Close() error {
	return f.db.Close()
}

// NewFSBackend opens (or creates) a nutsdb directory.
func NewFSBackend(dir string) (Backend, error) {
	opts := nutsdb.DefaultOptions
	opts.Dir = dir
	opts.SegmentSize = 8 * nutsdb.MB
	db, err := nutsdb.Open(opts)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to open store in %s", dir)
	}
	return &fs{mutex: &sync.Mutex{}, db: db, next: map[string]uint64{}}, nil
}
