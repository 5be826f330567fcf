package log

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

type Level int8

const (
	DebugLevel Level = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
	DPanicLevel
	PanicLevel
	FatalLevel
)

// ParseLevel accepts the zap level names, case-insensitive.
func ParseLevel(text string) (Level, error) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(text))); err != nil {
		return InfoLevel, errors.WithMessagef(err, "unknown log level %q", text)
	}
	return Level(l), nil
}

type OutputEncoder func(config zapcore.EncoderConfig) zapcore.Encoder

var (
	JsonOutputEncoder    OutputEncoder = zapcore.NewJSONEncoder
	ConsoleOutputEncoder OutputEncoder = zapcore.NewConsoleEncoder
)

// ParseOutputEncoder maps "json" and "console" to their encoders.
func ParseOutputEncoder(text string) (OutputEncoder, error) {
	switch strings.ToLower(text) {
	case "", "json":
		return JsonOutputEncoder, nil
	case "console":
		return ConsoleOutputEncoder, nil
	default:
		return nil, errors.Errorf("unknown output encoder %q", text)
	}
}

type LevelEncoder func(zapcore.Level, zapcore.PrimitiveArrayEncoder)

func BracketLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + l.CapitalString() + "]")
}

var CapitalLevelEncoder LevelEncoder = zapcore.CapitalLevelEncoder

type CallerEncoder func(zapcore.EntryCaller, zapcore.PrimitiveArrayEncoder)

var ShortCallerEncoder CallerEncoder = zapcore.ShortCallerEncoder
