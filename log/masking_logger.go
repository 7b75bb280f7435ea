/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/ssgreg/logf"
)

// MaskingLogger masks secrets in messages and fields before passing them to the wrapped logger.
// Upstream URLs may carry API keys in the query string, and a transport error quoting such URL would leak it.
type MaskingLogger struct {
	log    FieldLogger
	masker StringMasker
}

// NewMaskingLogger wraps the logger.
func NewMaskingLogger(l FieldLogger, m StringMasker) FieldLogger {
	return MaskingLogger{log: l, masker: m}
}

// With returns a new logger with the given additional fields.
func (l MaskingLogger) With(fs ...Field) FieldLogger {
	return MaskingLogger{l.log.With(l.maskFields(fs)...), l.masker}
}

// Debug logs message at "debug" level.
func (l MaskingLogger) Debug(text string, fs ...Field) {
	l.log.Debug(l.masker.Mask(text), l.maskFields(fs)...)
}

// Info logs message at "info" level.
func (l MaskingLogger) Info(text string, fs ...Field) {
	l.log.Info(l.masker.Mask(text), l.maskFields(fs)...)
}

// Warn logs message at "warn" level.
func (l MaskingLogger) Warn(text string, fs ...Field) {
	l.log.Warn(l.masker.Mask(text), l.maskFields(fs)...)
}

// Error logs message at "error" level.
func (l MaskingLogger) Error(text string, fs ...Field) {
	l.log.Error(l.masker.Mask(text), l.maskFields(fs)...)
}

func (l MaskingLogger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}
func (l MaskingLogger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}
func (l MaskingLogger) Warnf(format string, args ...interface{}) {
	l.Warn(fmt.Sprintf(format, args...))
}
func (l MaskingLogger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// AtLevel calls fn if logging at the level is enabled. Messages logged via the passed LogFunc are masked too.
func (l MaskingLogger) AtLevel(level Level, fn func(logFunc LogFunc)) {
	l.log.AtLevel(level, func(logFunc LogFunc) {
		fn(func(msg string, fs ...Field) {
			logFunc(l.masker.Mask(msg), l.maskFields(fs)...)
		})
	})
}

// WithLevel returns a new logger with additional level check.
func (l MaskingLogger) WithLevel(level Level) FieldLogger {
	return MaskingLogger{l.log.WithLevel(level), l.masker}
}

// maskFields returns the original slice if nothing was masked.
func (l MaskingLogger) maskFields(fields []Field) []Field {
	var result []Field
	for i := range fields {
		masked, ok := l.maskField(fields[i])
		if !ok {
			continue
		}
		if result == nil {
			result = make([]Field, len(fields))
			copy(result, fields)
		}
		result[i] = masked
	}
	if result == nil {
		return fields
	}
	return result
}

var stringSliceType = reflect.TypeOf([]string{})

// maskField returns false if the field doesn't contain a secret. Fields of arbitrary types are not inspected.
func (l MaskingLogger) maskField(f Field) (Field, bool) {
	switch f.Type {
	case logf.FieldTypeBytesToString:
		if s, masked := l.maskString(string(f.Bytes)); masked {
			return String(f.Key, s), true
		}
	case logf.FieldTypeBytes, logf.FieldTypeRawBytes:
		if s, masked := l.maskString(string(f.Bytes)); masked {
			return logf.ConstBytes(f.Key, []byte(s)), true
		}
	case logf.FieldTypeError:
		err, ok := f.Any.(error)
		if !ok {
			break
		}
		if s, masked := l.maskString(err.Error()); masked {
			return NamedError(f.Key, l.newMaskedError(err, s)), true
		}
	case logf.FieldTypeArray:
		if f.Any == nil {
			break
		}
		v := reflect.ValueOf(f.Any)
		if !v.CanConvert(stringSliceType) {
			break
		}
		ss := v.Convert(stringSliceType).Interface().([]string)
		var changed bool
		res := make([]string, len(ss))
		for i := range ss {
			var masked bool
			res[i], masked = l.maskString(ss[i])
			changed = changed || masked
		}
		if changed {
			return Strings(f.Key, res), true
		}
	}
	return f, false
}

func (l MaskingLogger) maskString(s string) (string, bool) {
	masked := l.masker.Mask(s)
	return masked, masked != s
}

func (l MaskingLogger) newMaskedError(err error, msg string) error {
	if _, ok := err.(fmt.Formatter); ok {
		return maskedError{msg: msg, verbose: l.masker.Mask(fmt.Sprintf("%+v", err))}
	}
	return errors.New(msg)
}

// maskedError keeps the verbose representation (used for the "error_verbose" field) masked as well.
type maskedError struct {
	msg     string
	verbose string
}

func (e maskedError) Error() string {
	return e.msg
}

func (e maskedError) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, e.verbose)
}
