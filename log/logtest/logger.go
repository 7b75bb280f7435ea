/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"io"
	"os"
	"sync"

	"github.com/ssgreg/logf"

	"github.com/vinyldash/vinylgw/log"
)

// LoggerOpts represents options for NewLoggerWithOpts.
type LoggerOpts struct {
	// Output is os.Stderr if nil.
	Output io.Writer
}

// NewLogger returns a synchronous JSON logger writing to stderr at "debug" level.
// It's slow and must be used in tests only.
func NewLogger() log.FieldLogger {
	return NewLoggerWithOpts(LoggerOpts{})
}

// NewLoggerWithOpts is the same as NewLogger but with options.
func NewLoggerWithOpts(opts LoggerOpts) log.FieldLogger {
	w := &syncEntryWriter{
		encoder: logf.NewJSONEncoder(logf.JSONEncoderConfig{
			EncodeTime:   logf.RFC3339NanoTimeEncoder,
			FieldKeyTime: "time",
		}),
		output: opts.Output,
	}
	if w.output == nil {
		w.output = os.Stderr
	}
	return &log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, w)}
}

// syncEntryWriter encodes and writes every entry immediately.
type syncEntryWriter struct {
	mu      sync.Mutex
	encoder logf.Encoder
	output  io.Writer
	buf     logf.Buffer
}

//nolint:gocritic // logf.EntryWriter passes entries by value.
func (w *syncEntryWriter) WriteEntry(e logf.Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Data = w.buf.Data[:0]
	if err := w.encoder.Encode(&w.buf, e); err != nil {
		_, _ = io.WriteString(w.output, err.Error()+"\n")
		return
	}
	_, _ = w.output.Write(w.buf.Data)
}
