package logging

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap/zapcore"
)

// Level is a logging severity, ordered DEBUG < INFO < WARN < ERROR.
type Level int8

const (
	DEBUG Level = iota - 1
	INFO
	WARN
	ERROR
)

func (level Level) String() string {
	switch level {
	case DEBUG:
		return "Debug"
	case INFO:
		return "Info"
	case WARN:
		return "Warn"
	case ERROR:
		return "Error"
	default:
		return fmt.Sprintf("Level(%d)", int8(level))
	}
}

// LevelFromString parses a level name case-insensitively, accepting the
// common alias "warning" for WARN.
func LevelFromString(levelStr string) (Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", levelStr)
	}
}

// MarshalJSON implements json.Marshaler.
func (level Level) MarshalJSON() ([]byte, error) {
	return []byte(`"` + level.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (level *Level) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid level JSON %q", string(data))
	}
	parsed, err := LevelFromString(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*level = parsed
	return nil
}

func (level Level) zapLevel() zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// AtomicLevel wraps an atomically updatable Level.
type AtomicLevel struct {
	v atomic.Int32
}

// NewAtomicLevelAt builds an AtomicLevel initialized to level.
func NewAtomicLevelAt(level Level) *AtomicLevel {
	a := &AtomicLevel{}
	a.v.Store(int32(level))
	return a
}

// Get returns the current level.
func (a *AtomicLevel) Get() Level {
	return Level(a.v.Load())
}

// Set updates the current level.
func (a *AtomicLevel) Set(level Level) {
	a.v.Store(int32(level))
}
