package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	rootLogger Logger
	mutex             = &sync.Mutex{}
	nopLogger  Logger = &logger{zap.NewNop().Sugar()}
)

// Logger is the logging facade used by every package in this module.
// It is satisfied by a named zap SugaredLogger.
type Logger interface {
	Named(name string) Logger
	With(args ...any) Logger

	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Fatal(args ...any)

	Debugf(template string, args ...any)
	Infof(template string, args ...any)
	Warnf(template string, args ...any)
	Errorf(template string, args ...any)
	Fatalf(template string, args ...any)

	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
	Fatalw(msg string, keysAndValues ...any)

	Sync() error
}

type logger struct {
	*zap.SugaredLogger
}

func (l *logger) Named(name string) Logger {
	return &logger{l.SugaredLogger.Named(name)}
}

func (l *logger) With(args ...any) Logger {
	return &logger{l.SugaredLogger.With(args...)}
}

// Wrap adapts an existing zap logger, mostly useful in tests with zaptest/observer.
func Wrap(z *zap.Logger) Logger {
	return &logger{z.Sugar()}
}

// Global returns the root logger, or a no-op logger if Setup was never called.
func Global() Logger {
	mutex.Lock()
	defer mutex.Unlock()
	if rootLogger == nil {
		return nopLogger
	}
	return rootLogger
}

func Setup(options *Options) {
	mutex.Lock()
	defer mutex.Unlock()
	if rootLogger != nil {
		rootLogger.Warn("can't re setup root logger")
		return
	}
	var (
		cores         []zapcore.Core
		opts          []zap.Option
		encoderConfig = zap.NewProductionEncoderConfig()
	)

	if options.callerEncoder != nil {
		opts = append(opts, zap.AddCaller())
		encoderConfig.EncodeCaller = zapcore.CallerEncoder(options.callerEncoder)
	}
	encoderConfig.EncodeLevel = zapcore.LevelEncoder(options.levelEncoder)
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(options.timeLayout)
	encoderConfig.ConsoleSeparator = " "

	level := zapcore.Level(options.level)
	if options.stdOutput {
		cores = append(cores,
			zapcore.NewCore(options.outputEncoder(encoderConfig), zapcore.AddSync(os.Stdout),
				zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
					return lvl >= level && lvl < zapcore.WarnLevel
				})),
			zapcore.NewCore(options.outputEncoder(encoderConfig), zapcore.AddSync(os.Stderr),
				zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
					return lvl >= level && lvl >= zapcore.WarnLevel
				})))
	}
	if options.stacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.WarnLevel))
	}
	sugared := zap.New(zapcore.NewTee(cores...), opts...).Sugar()
	if options.name != "" {
		sugared = sugared.Named(options.name)
	}
	rootLogger = &logger{sugared}
}
