/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/vinyldash/vinylgw/log"
)

// LoggingParams lets handlers add fields to the "response completed" message of the Logging middleware.
// It may be updated from goroutines serving the request (e.g. an upstream call made on its behalf).
type LoggingParams struct {
	mu        sync.Mutex
	fields    []log.Field
	timeSlots timeSlots
}

// ExtendFields adds fields to the final log message.
func (lp *LoggingParams) ExtendFields(fields ...log.Field) {
	lp.mu.Lock()
	lp.fields = append(lp.fields, fields...)
	lp.mu.Unlock()
}

// AddTimeSlotDurationInMs adds the duration to the named slot of the "time_slots" field.
// Time slots are logged for slow requests only.
func (lp *LoggingParams) AddTimeSlotDurationInMs(name string, dur time.Duration) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.timeSlots == nil {
		lp.timeSlots = make(timeSlots)
	}
	lp.timeSlots[name] += dur.Milliseconds()
}

func (lp *LoggingParams) logFields(slow bool) []log.Field {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	fields := append([]log.Field(nil), lp.fields...)
	if slow && len(lp.timeSlots) != 0 {
		slots := make(timeSlots, len(lp.timeSlots))
		for k, v := range lp.timeSlots {
			slots[k] = v
		}
		fields = append(fields, log.Field{Key: "time_slots", Type: logf.FieldTypeObject, Any: slots})
	}
	return fields
}

type timeSlots map[string]int64

func (ts timeSlots) EncodeLogfObject(e logf.FieldEncoder) error {
	for name, ms := range ts {
		e.EncodeFieldInt64(name, ms)
	}
	return nil
}

// MetricsParams lets handlers set values of the custom labels of the HTTP request metrics.
type MetricsParams struct {
	mu     sync.Mutex
	values map[string]string
}

// SetValue sets the label value, the previous one is overwritten.
func (mp *MetricsParams) SetValue(name, value string) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.values == nil {
		mp.values = make(map[string]string)
	}
	mp.values[name] = value
}

// Value returns the label value.
func (mp *MetricsParams) Value(name string) (string, bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	v, ok := mp.values[name]
	return v, ok
}
