package logging

import (
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// LoggerPatternConfig maps a dotted logger-name glob pattern (trailing "*"
// matches any suffix) to a level, letting an operator turn DEBUG on for one
// subsystem without recompiling.
type LoggerPatternConfig struct {
	Pattern string
	Level   string
}

type parsedPattern struct {
	pattern string
	level   Level
}

// Registry tracks every Logger created via NewLogger/Sublogger so a runtime
// config reload can retarget log levels by name or glob pattern.
type Registry struct {
	mu            sync.RWMutex
	loggers       map[string]Logger
	patterns      []parsedPattern
	currentConfig []LoggerPatternConfig
}

// GetCurrentConfig returns the pattern configs most recently applied by
// Update.
func (r *Registry) GetCurrentConfig() []LoggerPatternConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentConfig
}

func newRegistry() *Registry {
	return &Registry{loggers: make(map[string]Logger)}
}

func (r *Registry) levelForName(name string) (Level, bool) {
	found := false
	var level Level
	for _, p := range r.patterns {
		if patternMatches(p.pattern, name) {
			level = p.level
			found = true
		}
	}
	return level, found
}

func (r *Registry) registerLogger(name string, logger Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loggers[name] = logger
}

func (r *Registry) loggerNamed(name string) (Logger, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loggers[name]
	return l, ok
}

func (r *Registry) getRegisteredLoggerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.loggers))
	for name := range r.loggers {
		names = append(names, name)
	}
	return names
}

func (r *Registry) getOrRegister(name string, fallback Logger) Logger {
	r.mu.Lock()
	if l, ok := r.loggers[name]; ok {
		r.mu.Unlock()
		return l
	}
	r.loggers[name] = fallback
	level, matched := r.levelForName(name)
	r.mu.Unlock()
	if matched {
		fallback.SetLevel(level)
	}
	return fallback
}

func (r *Registry) updateLoggerLevel(name string, level Level) error {
	logger, ok := r.loggerNamed(name)
	if !ok {
		return errors.Errorf("no logger registered under name %q", name)
	}
	logger.SetLevel(level)
	return nil
}

// Update applies every pattern config in order (later entries win on
// overlap) across all currently registered loggers; a registered logger that
// no pattern matches is reset to INFO. It records cfgs for GetCurrentConfig.
// fallback is not used: names that appear only in the config are not
// registered.
func (r *Registry) Update(cfgs []LoggerPatternConfig, fallback Logger) error {
	parsed := make([]parsedPattern, 0, len(cfgs))
	for _, cfg := range cfgs {
		level, err := LevelFromString(cfg.Level)
		if err != nil {
			return errors.Wrapf(err, "pattern %q", cfg.Pattern)
		}
		parsed = append(parsed, parsedPattern{cfg.Pattern, level})
	}

	r.mu.Lock()
	r.patterns = parsed
	r.currentConfig = cfgs
	names := make([]string, 0, len(r.loggers))
	for name := range r.loggers {
		names = append(names, name)
	}
	r.mu.Unlock()

	for _, name := range names {
		if level, ok := r.levelForName(name); ok {
			_ = r.updateLoggerLevel(name, level)
		} else {
			_ = r.updateLoggerLevel(name, INFO)
		}
	}

	_ = fallback
	return nil
}

// patternMatches implements the teacher's dotted-name glob: "*" matches any
// run of characters (including dots), so "rdk.*" matches every descendant of
// "rdk" and "rdk.*.modmanager" matches any number of segments in between. A
// pattern with no "*" must match the name exactly.
func patternMatches(pattern, name string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == name
	}
	re, err := regexp.Compile("^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$")
	if err != nil {
		return false
	}
	return re.MatchString(name)
}
