// Package telemetry provides the structured logging facade used across
// voxelmap. It wraps zap the same way the reference logging package does:
// a small interface in front of a SugaredLogger, rather than handing zap
// types to callers directly.
package telemetry

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Logger is the subset of zap's SugaredLogger that voxelmap components use.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Named(name string) Logger
}

type sugared struct {
	*zap.SugaredLogger
}

func (s *sugared) Named(name string) Logger {
	return &sugared{s.SugaredLogger.Named(name)}
}

// NewLoggerConfig returns the console encoder config NewLogger builds from:
// colored levels, ISO8601 timestamps, no stacktraces. NewTestLogger does
// not use it; it takes zaptest's own configuration.
func NewLoggerConfig() zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			MessageKey:     "msg",
			StacktraceKey:  zapcore.OmitKey,
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger returns a Logger that writes Info+ to stdout, named name.
func NewLogger(name string) Logger {
	cfg := NewLoggerConfig()
	base, err := cfg.Build()
	if err != nil {
		// Config above is static and always valid; a failure here means
		// zap itself is broken.
		panic(err)
	}
	return &sugared{base.Named(name).Sugar()}
}

// NewTestLogger returns a Logger that writes to the test's own log output.
func NewTestLogger(tb testing.TB) Logger {
	return &sugared{zaptest.NewLogger(tb).Sugar()}
}

// noop discards everything; used when a component is constructed with a nil
// Logger so call sites never need a nil check.
type noop struct{}

func (noop) Debugw(string, ...interface{}) {}
func (noop) Infow(string, ...interface{})  {}
func (noop) Warnw(string, ...interface{})  {}
func (noop) Errorw(string, ...interface{}) {}
func (n noop) Named(string) Logger         { return n }

// NoOp returns a Logger that discards everything.
func NoOp() Logger { return noop{} }

// Default returns logger if non-nil, else NoOp(). Components call this once
// at construction so the rest of their methods never branch on nil.
func Default(logger Logger) Logger {
	if logger == nil {
		return NoOp()
	}
	return logger
}
