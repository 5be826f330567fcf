package supplier

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func drain(t *testing.T, s Supplier) []any {
	it, err := s.Get(context.Background())
	require.Nil(t, err)
	var items []any
	for it.Next() {
		items = append(items, it.Value())
	}
	require.Nil(t, it.Err())
	return items
}

func TestStaticKeepsNulls(t *testing.T) {
	s := Static(5, nil, 7)
	assert.Equal(t, []any{5, nil, 7}, drain(t, s))
	assert.Equal(t, []any{5, nil, 7}, drain(t, s))
}

func TestGeneratorStopsOnError(t *testing.T) {
	cause := errors.New("broken")
	n := 0
	it := Generator(func() (any, bool, error) {
		n++
		if n == 3 {
			return nil, false, cause
		}
		return n, true, nil
	})
	assert.True(t, it.Next())
	assert.True(t, it.Next())
	assert.Equal(t, 2, it.Value())
	assert.False(t, it.Next())
	assert.False(t, it.Next())
	assert.Equal(t, cause, it.Err())
}

func TestRange(t *testing.T) {
	s, err := Range(0, 6, 2)
	require.Nil(t, err)
	assert.Equal(t, []any{int64(0), int64(2), int64(4)}, drain(t, s))

	s, err = Range(3, 0, -1)
	require.Nil(t, err)
	assert.Equal(t, []any{int64(3), int64(2), int64(1)}, drain(t, s))

	_, err = Range(0, 1, 0)
	assert.NotNil(t, err)
}

func TestRangeNearLimits(t *testing.T) {
	s, err := Range(math.MaxInt64-1, math.MaxInt64, 2)
	require.Nil(t, err)
	assert.Equal(t, []any{int64(math.MaxInt64 - 1)}, drain(t, s))

	s, err = Range(math.MinInt64+2, math.MinInt64, -3)
	require.Nil(t, err)
	assert.Equal(t, []any{int64(math.MinInt64 + 2)}, drain(t, s))

	s, err = Range(math.MaxInt64-4, math.MaxInt64, 2)
	require.Nil(t, err)
	assert.Equal(t, []any{int64(math.MaxInt64 - 4), int64(math.MaxInt64 - 2)}, drain(t, s))
}

func TestResolveBuiltin(t *testing.T) {
	s, err := Resolve([]byte("kind: range\nconfig:\n  start: 1\n  end: 4\n"))
	require.Nil(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, drain(t, s))

	s, err = Resolve([]byte("kind: static\nconfig:\n  values: [5, null, 7]\n"))
	require.Nil(t, err)
	assert.Equal(t, []any{5, nil, 7}, drain(t, s))

	s, err = Resolve([]byte("kind: static\n"))
	require.Nil(t, err)
	assert.Empty(t, drain(t, s))
}

func TestResolveErrors(t *testing.T) {
	_, err := Resolve([]byte("kind: [broken"))
	assert.NotNil(t, err)

	_, err = Resolve([]byte("config: {}\n"))
	assert.NotNil(t, err)

	_, err = Resolve([]byte("kind: nope\n"))
	assert.True(t, errors.Is(err, ErrUnknownKind))

	_, err = Resolve([]byte("kind: range\nconfig:\n  step: 0\n"))
	assert.NotNil(t, err)
}

func TestRegister(t *testing.T) {
	factory := func(config *yaml.Node) (Supplier, error) {
		return Static("registered"), nil
	}
	assert.Nil(t, Register("test-register", factory))
	assert.NotNil(t, Register("test-register", factory))
	assert.NotNil(t, Register("", factory))
	assert.NotNil(t, Register("test-nil", nil))
	assert.Contains(t, Kinds(), "test-register")

	s, err := Resolve([]byte("kind: test-register\n"))
	require.Nil(t, err)
	assert.Equal(t, []any{"registered"}, drain(t, s))
}

func TestLinesFollowsAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	require.Nil(t, os.WriteFile(path, []byte("a\nb\npart"), 0o644))

	s, err := Resolve([]byte("kind: lines\nconfig:\n  path: " + path + "\n"))
	require.Nil(t, err)
	assert.Equal(t, []any{"a", "b"}, drain(t, s))
	assert.Empty(t, drain(t, s))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.Nil(t, err)
	_, err = f.WriteString("ial\nc\r\n")
	require.Nil(t, err)
	require.Nil(t, f.Close())

	assert.Equal(t, []any{"partial", "c"}, drain(t, s))

	closer, ok := s.(interface{ Close() error })
	require.True(t, ok)
	assert.Nil(t, closer.Close())
	assert.Nil(t, closer.Close())
	_, err = s.Get(context.Background())
	assert.True(t, errors.Is(err, os.ErrClosed))
}

func TestLinesMissingFile(t *testing.T) {
	_, err := Resolve([]byte("kind: lines\nconfig:\n  path: /does/not/exist\n"))
	assert.NotNil(t, err)
	_, err = Resolve([]byte("kind: lines\n"))
	assert.NotNil(t, err)
}

func TestLoadLibraries(t *testing.T) {
	dir := t.TempDir()
	err := LoadLibraries([]string{filepath.Join(dir, "missing.so")})
	assert.True(t, errors.Is(err, ErrLibraryNotFound))

	assert.NotNil(t, LoadLibraries([]string{dir}))

	lib := filepath.Join(dir, "numbers.so")
	require.Nil(t, os.WriteFile(lib, []byte("not really a plugin"), 0o644))
	opened := 0
	original := openPlugin
	openPlugin = func(path string) error {
		opened++
		return nil
	}
	defer func() { openPlugin = original }()
	assert.Nil(t, LoadLibraries([]string{lib, lib}))
	assert.Nil(t, LoadLibraries([]string{lib}))
	assert.Equal(t, 1, opened)
}
