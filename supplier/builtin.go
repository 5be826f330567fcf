package supplier

import (
	"bufio"
	"context"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

func init() {
	MustRegister("range", newRange)
	MustRegister("static", newStatic)
	MustRegister("lines", newLines)
}

func decodeConfig(config *yaml.Node, out any) error {
	if config == nil {
		return nil
	}
	if err := config.Decode(out); err != nil {
		return errors.WithMessage(err, "invalid supplier config")
	}
	return nil
}

type rangeConfig struct {
	Start int64 `yaml:"start"`
	End   int64 `yaml:"end"`
	Step  int64 `yaml:"step"`
}

// Range emits start, start+step, ... up to and excluding end on every cycle.
func Range(start, end, step int64) (Supplier, error) {
	if step == 0 {
		return nil, errors.New("range step can't be 0")
	}
	return Func(func(_ context.Context) (Iterator, error) {
		next, done := start, false
		return Generator(func() (any, bool, error) {
			if done || (step > 0 && next >= end) || (step < 0 && next <= end) {
				return nil, false, nil
			}
			current := next
			// the next value would overflow, so it is past end as well
			if (step > 0 && next > math.MaxInt64-step) || (step < 0 && next < math.MinInt64-step) {
				done = true
			} else {
				next += step
			}
			return current, true, nil
		}), nil
	}), nil
}

func newRange(config *yaml.Node) (Supplier, error) {
	c := rangeConfig{Step: 1}
	if err := decodeConfig(config, &c); err != nil {
		return nil, err
	}
	return Range(c.Start, c.End, c.Step)
}

type staticConfig struct {
	Values []any `yaml:"values"`
}

func newStatic(config *yaml.Node) (Supplier, error) {
	var c staticConfig
	if err := decodeConfig(config, &c); err != nil {
		return nil, err
	}
	return Static(c.Values...), nil
}

type linesConfig struct {
	Path string `yaml:"path"`
}

// Lines follows a file: every cycle emits the complete lines appended since
// the previous cycle. A trailing line without newline is held back.
type Lines struct {
	mutex   sync.Mutex
	file    *os.File
	reader  *bufio.Reader
	pending string
	closed  bool
}

func OpenLines(path string) (*Lines, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "can't open %s", path)
	}
	return &Lines{file: file, reader: bufio.NewReader(file)}, nil
}

func newLines(config *yaml.Node) (Supplier, error) {
	var c linesConfig
	if err := decodeConfig(config, &c); err != nil {
		return nil, err
	}
	if c.Path == "" {
		return nil, errors.New("lines supplier needs a path")
	}
	return OpenLines(c.Path)
}

func (l *Lines) Get(_ context.Context) (Iterator, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.closed {
		return nil, os.ErrClosed
	}
	return Generator(l.readLine), nil
}

func (l *Lines) readLine() (any, bool, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.closed {
		return nil, false, os.ErrClosed
	}
	line, err := l.reader.ReadString('\n')
	if err == io.EOF {
		l.pending += line
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WithMessage(err, "read line failed")
	}
	line, l.pending = l.pending+line, ""
	return strings.TrimRight(line, "\r\n"), true, nil
}

func (l *Lines) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}
