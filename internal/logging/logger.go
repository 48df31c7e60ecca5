package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the structured logger every component stores. It is a thin
// named wrapper around zap.SugaredLogger so call sites read
// logger.Infow("message", "key", val) the way the teacher's components do.
type Logger interface {
	Named(name string) Logger
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Level() Level
	Sync() error
}

type impl struct {
	*zap.SugaredLogger
	level Level
}

func (i *impl) Named(name string) Logger {
	return &impl{i.SugaredLogger.Named(name), i.level}
}

func (i *impl) Level() Level {
	return i.level
}

// NewLogger returns a production JSON logger at INFO level, with no file
// rotation configured (callers needing rotation call NewRotatingLogger).
func NewLogger(name string) Logger {
	cfg := zap.NewProductionConfig()
	z, err := cfg.Build()
	if err != nil {
		// zap.NewProductionConfig().Build() only fails on a malformed
		// config, which this literal never produces.
		panic(err)
	}
	return &impl{z.Sugar().Named(name), INFO}
}

// NewRotatingLogger returns a production logger whose output is rotated
// through lumberjack, the way the teacher's file-backed loggers do.
func NewRotatingLogger(name, path string) Logger {
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	encCfg := zap.NewProductionEncoderConfig()
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(writer), zap.InfoLevel)
	z := zap.New(core)
	return &impl{z.Sugar().Named(name), INFO}
}

// NewTestLogger returns a logger that writes to the test's own log output,
// matching go.viam.com/rdk/logging.NewTestLogger(t).
func NewTestLogger(t *testing.T) Logger {
	t.Helper()
	return &impl{zaptest.NewLogger(t).Sugar(), DEBUG}
}

// NewObservedTestLogger returns a logger plus an observer.ObservedLogs so
// tests can assert on emitted log lines, matching the teacher's
// logging.NewObservedTestLogger helper.
func NewObservedTestLogger(t *testing.T) (Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	z := zap.New(core)
	return &impl{z.Sugar(), DEBUG}, logs
}
