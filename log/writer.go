/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package log

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ssgreg/logf"
	"github.com/ssgreg/logftext"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timeFieldKey = "time"

func newWriter(cfg *Config) io.Writer {
	switch cfg.Output {
	case OutputStderr:
		return os.Stderr
	case OutputFile:
		rotation := cfg.File.Rotation
		return &lumberjack.Logger{
			Filename:   expandFilePath(cfg.File.Path, time.Now()),
			MaxSize:    int(rotation.MaxSize / bytesInMegabyte),
			MaxBackups: rotation.MaxBackups,
			MaxAge:     rotation.MaxAgeDays,
			Compress:   rotation.Compress,
			LocalTime:  rotation.LocalTimeInNames,
		}
	default:
		return os.Stdout
	}
}

func newAppender(cfg *Config, w io.Writer) logf.Appender {
	encodeErr := newErrorEncoder(&cfg.Error)
	if cfg.Format == FormatText {
		noColor := cfg.NoColor
		return logftext.NewAppender(w, logftext.EncoderConfig{
			NoColor:     &noColor,
			EncodeTime:  logf.RFC3339NanoTimeEncoder,
			EncodeError: encodeErr,
		})
	}
	enc := logf.NewJSONEncoder(logf.JSONEncoderConfig{
		FieldKeyTime: timeFieldKey,
		EncodeTime:   logf.RFC3339NanoTimeEncoder,
		EncodeError:  encodeErr,
	})
	return logf.NewWriteAppender(w, enc)
}

// The default encoder of logf is used (nil) unless the verbose error output is customized.
func newErrorEncoder(cfg *ErrorConfig) logf.ErrorEncoder {
	if !cfg.NoVerbose && cfg.VerboseSuffix == "" {
		return nil
	}
	return logf.NewErrorEncoder(logf.ErrorEncoderConfig{
		NoVerboseField:     cfg.NoVerbose,
		VerboseFieldSuffix: cfg.VerboseSuffix,
	})
}

// expandFilePath substitutes the {{starttime}} and {{pid}} placeholders.
func expandFilePath(path string, start time.Time) string {
	return strings.NewReplacer(
		"{{starttime}}", start.Format("200601021504"),
		"{{pid}}", strconv.Itoa(os.Getpid()),
	).Replace(path)
}
