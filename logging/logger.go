// Package logging provides the structured logger used by every navcore
// component, wrapping go.uber.org/zap behind an interface so components
// never import zap directly.
package logging

import (
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger interface every component accepts at
// construction. No component keeps a package-level logger.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})

	Named(name string) Logger
	Sublogger(name string) Logger
	GetLevel() Level
	SetLevel(level Level)
}

// Appender is a sink for zap entries. NewStdoutAppender builds a console
// appender on stdout and every Logger records its appenders, but log calls
// are written through the Logger's *zap.SugaredLogger (stderr for the
// NewLogger family, t.Log for NewTestLogger), not through its appenders.
type Appender interface {
	Write(entry zapcore.Entry, fields []zapcore.Field) error
	Sync() error
}

type stdoutAppender struct {
	core zapcore.Core
}

// NewStdoutAppender returns the default console appender.
func NewStdoutAppender() Appender {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(zapcore.AddSync(os.Stdout)), zapcore.DebugLevel)
	return &stdoutAppender{core: core}
}

func (a *stdoutAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	return a.core.Write(entry, fields)
}

func (a *stdoutAppender) Sync() error { return a.core.Sync() }

type impl struct {
	name       string
	level      *AtomicLevel
	appenders  []Appender
	registry   *Registry
	sugar      *zap.SugaredLogger
	testHelper func()
}

var globalRegistry = newRegistry()

// NewLogger returns a named Logger at INFO level, registered for later
// dynamic level updates via Registry.Update.
func NewLogger(name string) Logger {
	return newNamedLogger(name, INFO)
}

// NewDebugLogger returns a named Logger at DEBUG level.
func NewDebugLogger(name string) Logger {
	return newNamedLogger(name, DEBUG)
}

// NewBlankLogger returns a named Logger at INFO level. It behaves exactly
// like NewLogger; keys and values are logged, not discarded.
func NewBlankLogger(name string) Logger {
	return newNamedLogger(name, INFO)
}

// NewLoggerWithRegistry returns a named Logger at INFO level together with a
// fresh Registry holding only that logger, so pattern configs can be applied
// to it and its subloggers without touching the process-wide registry.
func NewLoggerWithRegistry(name string) (Logger, *Registry) {
	reg := newRegistry()
	l := &impl{
		name:      name,
		level:     NewAtomicLevelAt(INFO),
		appenders: []Appender{NewStdoutAppender()},
		registry:  reg,
		sugar:     zap.Must(zap.NewDevelopment()).Sugar().Named(name),
	}
	reg.registerLogger(name, l)
	return l, reg
}

func newNamedLogger(name string, level Level) Logger {
	zl := zap.Must(zap.NewDevelopment())
	l := &impl{
		name:      name,
		level:     NewAtomicLevelAt(level),
		appenders: []Appender{NewStdoutAppender()},
		registry:  globalRegistry,
		sugar:     zl.Sugar().Named(name),
	}
	globalRegistry.registerLogger(name, l)
	return l
}

// NewTestLogger returns a Logger that writes through t.Log, in the teacher's
// style of logging.NewTestLogger(t) used across every _test.go file.
func NewTestLogger(t *testing.T) Logger {
	zl := zaptest(t)
	return &impl{
		name:      t.Name(),
		level:     NewAtomicLevelAt(DEBUG),
		appenders: []Appender{NewStdoutAppender()},
		registry:  globalRegistry,
		sugar:     zl.Sugar(),
	}
}

func (l *impl) Debugw(msg string, kv ...interface{}) { l.log(DEBUG, msg, kv...) }
func (l *impl) Infow(msg string, kv ...interface{})  { l.log(INFO, msg, kv...) }
func (l *impl) Warnw(msg string, kv ...interface{})  { l.log(WARN, msg, kv...) }
func (l *impl) Errorw(msg string, kv ...interface{}) { l.log(ERROR, msg, kv...) }

func (l *impl) Debugf(template string, args ...interface{}) { l.logf(DEBUG, template, args...) }
func (l *impl) Infof(template string, args ...interface{})  { l.logf(INFO, template, args...) }
func (l *impl) Warnf(template string, args ...interface{})  { l.logf(WARN, template, args...) }
func (l *impl) Errorf(template string, args ...interface{}) { l.logf(ERROR, template, args...) }

func (l *impl) log(level Level, msg string, kv ...interface{}) {
	if level < l.level.Get() {
		return
	}
	switch level {
	case DEBUG:
		l.sugar.Debugw(msg, kv...)
	case WARN:
		l.sugar.Warnw(msg, kv...)
	case ERROR:
		l.sugar.Errorw(msg, kv...)
	default:
		l.sugar.Infow(msg, kv...)
	}
}

func (l *impl) logf(level Level, template string, args ...interface{}) {
	if level < l.level.Get() {
		return
	}
	switch level {
	case DEBUG:
		l.sugar.Debugf(template, args...)
	case WARN:
		l.sugar.Warnf(template, args...)
	case ERROR:
		l.sugar.Errorf(template, args...)
	default:
		l.sugar.Infof(template, args...)
	}
}

func (l *impl) Named(name string) Logger {
	sub := &impl{
		name:      name,
		level:     l.level,
		appenders: l.appenders,
		registry:  l.registry,
		sugar:     l.sugar.Named(name),
	}
	return sub
}

func (l *impl) Sublogger(name string) Logger {
	full := l.name + "." + name
	// A sublogger takes its level from the registry's patterns, not from its
	// parent; with no matching pattern it starts at INFO.
	level := INFO
	l.registry.mu.RLock()
	if lv, ok := l.registry.levelForName(full); ok {
		level = lv
	}
	l.registry.mu.RUnlock()
	sub := &impl{
		name:      full,
		level:     NewAtomicLevelAt(level),
		appenders: l.appenders,
		registry:  l.registry,
		sugar:     l.sugar.Named(name),
	}
	l.registry.registerLogger(full, sub)
	return sub
}

func (l *impl) GetLevel() Level { return l.level.Get() }

func (l *impl) SetLevel(level Level) { l.level.Set(level) }

// FromZapCompatible wraps an already constructed *zap.SugaredLogger, in the
// style of the teacher's logging.FromZapCompatible helper used by tests that
// build a fixed zap.Config (e.g. to silence output below FatalLevel).
func FromZapCompatible(z *zap.SugaredLogger) Logger {
	return &impl{
		name:      "",
		level:     NewAtomicLevelAt(INFO),
		appenders: []Appender{NewStdoutAppender()},
		registry:  globalRegistry,
		sugar:     z,
	}
}
