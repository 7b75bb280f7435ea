/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"fmt"
	"os"
	"time"

	"github.com/ssgreg/logf"
)

// Field is a typed key-value pair attached to a log entry.
type Field = logf.Field

// LogFunc logs a message at the level it's bound to.
// nolint: revive
type LogFunc = logf.LogFunc

// CloseFunc flushes the buffered entries. It must be called before the process exits.
type CloseFunc logf.ChannelWriterCloseFunc

// Field constructors.
var (
	Error      = logf.Error
	NamedError = logf.NamedError
	String     = logf.String
	Strings    = logf.Strings
	Bytes      = logf.Bytes
	Bool       = logf.Bool
	Int        = logf.Int
	Int64      = logf.Int64
	Duration   = logf.Duration
)

// DurationIn makes the "duration" field with the whole number of units in val.
func DurationIn(val, unit time.Duration) Field {
	return Int64("duration", int64(val/unit))
}

// FieldLogger writes structured log entries.
type FieldLogger interface {
	With(...Field) FieldLogger
	WithLevel(level Level) FieldLogger
	AtLevel(Level, func(LogFunc))

	Debug(string, ...Field)
	Info(string, ...Field)
	Warn(string, ...Field)
	Error(string, ...Field)

	Debugf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Errorf(string, ...interface{})
}

var logfLevels = map[Level]logf.Level{
	LevelDebug: logf.LevelDebug,
	LevelInfo:  logf.LevelInfo,
	LevelWarn:  logf.LevelWarn,
	LevelError: logf.LevelError,
}

func toLogfLevel(level Level) logf.Level {
	if l, ok := logfLevels[level]; ok {
		return l
	}
	return logf.LevelInfo
}

// NewLogger creates a logger by the configuration. Entries are encoded and written
// in a separate goroutine, so the returned CloseFunc has to be called to flush them.
func NewLogger(cfg *Config) (FieldLogger, CloseFunc) {
	channel, closeFunc := logf.NewChannelWriter(logf.ChannelWriterConfig{
		Appender:          newAppender(cfg, newWriter(cfg)),
		EnableSyncOnError: true,
	})
	l := logf.NewLogger(toLogfLevel(cfg.Level), channel).With(logf.Int("pid", os.Getpid()))
	if cfg.AddCaller {
		l = l.WithCaller().WithCallerSkip(1)
	}
	var logger FieldLogger = &LogfAdapter{Logger: l}
	if !cfg.Masking.Enabled {
		return logger, CloseFunc(closeFunc)
	}
	rules := cfg.Masking.Rules
	if cfg.Masking.UseDefaultRules {
		rules = append(rules, DefaultMasks...)
	}
	return NewMaskingLogger(logger, NewMasker(rules)), CloseFunc(closeFunc)
}

// NewDisabledLogger returns a logger that drops everything.
func NewDisabledLogger() FieldLogger {
	return &LogfAdapter{Logger: logf.NewDisabledLogger()}
}

// LogfAdapter implements FieldLogger on top of logf.Logger.
type LogfAdapter struct {
	Logger *logf.Logger
}

// With implements FieldLogger.
func (l *LogfAdapter) With(fs ...Field) FieldLogger {
	return &LogfAdapter{Logger: l.Logger.With(fs...)}
}

// WithLevel returns a logger that drops entries below the level.
// The level of the parent logger still applies, so it can only be raised.
func (l *LogfAdapter) WithLevel(level Level) FieldLogger {
	return &LogfAdapter{Logger: l.Logger.WithLevel(toLogfLevel(level))}
}

// AtLevel calls fn only if the level is enabled.
func (l *LogfAdapter) AtLevel(level Level, fn func(logFunc LogFunc)) {
	l.Logger.AtLevel(toLogfLevel(level), fn)
}

// Debug implements FieldLogger.
func (l *LogfAdapter) Debug(msg string, fs ...Field) { l.Logger.Debug(msg, fs...) }

// Info implements FieldLogger.
func (l *LogfAdapter) Info(msg string, fs ...Field) { l.Logger.Info(msg, fs...) }

// Warn implements FieldLogger.
func (l *LogfAdapter) Warn(msg string, fs ...Field) { l.Logger.Warn(msg, fs...) }

// Error implements FieldLogger.
func (l *LogfAdapter) Error(msg string, fs ...Field) { l.Logger.Error(msg, fs...) }

// Debugf implements FieldLogger.
func (l *LogfAdapter) Debugf(format string, args ...interface{}) { l.sprintf(LevelDebug, format, args) }

// Infof implements FieldLogger.
func (l *LogfAdapter) Infof(format string, args ...interface{}) { l.sprintf(LevelInfo, format, args) }

// Warnf implements FieldLogger.
func (l *LogfAdapter) Warnf(format string, args ...interface{}) { l.sprintf(LevelWarn, format, args) }

// Errorf implements FieldLogger.
func (l *LogfAdapter) Errorf(format string, args ...interface{}) { l.sprintf(LevelError, format, args) }

func (l *LogfAdapter) sprintf(level Level, format string, args []interface{}) {
	l.Logger.AtLevel(toLogfLevel(level), func(logFunc LogFunc) {
		logFunc(fmt.Sprintf(format, args...))
	})
}
