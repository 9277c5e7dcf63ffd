package log

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// eventSink receives a finished event. Implemented by GameLogger.
type eventSink interface {
	OnEventEnd(e *LogEvent)
}

// LogEvent is one in-flight log line. Events come from a pool, accumulate
// fields through the fluent setters, and are flushed and recycled by Msg.
// A nil event (level filtered out) swallows every call, so call sites never
// need a level guard.
type LogEvent struct {
	buf    bytes.Buffer
	level  Level
	sink   eventSink
	fields int
}

func newEvent(sink eventSink) *LogEvent {
	return &LogEvent{sink: sink}
}

// Reset clears the event for reuse.
func (e *LogEvent) Reset() {
	e.buf.Reset()
	e.fields = 0
}

func (e *LogEvent) key(k string) {
	if e.fields == 0 {
		e.buf.WriteByte('{')
	} else {
		e.buf.WriteByte(',')
	}
	e.fields++
	e.appendQuoted(k)
	e.buf.WriteByte(':')
}

func (e *LogEvent) appendQuoted(s string) {
	b := e.buf.AvailableBuffer()
	b = strconv.AppendQuote(b, s)
	e.buf.Write(b)
}

// Str adds a string field.
func (e *LogEvent) Str(k, v string) *LogEvent {
	if e == nil {
		return nil
	}
	e.key(k)
	e.appendQuoted(v)
	return e
}

// Int adds an int field.
func (e *LogEvent) Int(k string, v int) *LogEvent {
	return e.Int64(k, int64(v))
}

// Int32 adds an int32 field.
func (e *LogEvent) Int32(k string, v int32) *LogEvent {
	return e.Int64(k, int64(v))
}

// Int64 adds an int64 field.
func (e *LogEvent) Int64(k string, v int64) *LogEvent {
	if e == nil {
		return nil
	}
	e.key(k)
	e.buf.WriteString(strconv.FormatInt(v, 10))
	return e
}

// Uint32 adds a uint32 field.
func (e *LogEvent) Uint32(k string, v uint32) *LogEvent {
	return e.Uint64(k, uint64(v))
}

// Uint64 adds a uint64 field.
func (e *LogEvent) Uint64(k string, v uint64) *LogEvent {
	if e == nil {
		return nil
	}
	e.key(k)
	e.buf.WriteString(strconv.FormatUint(v, 10))
	return e
}

// Float64 adds a float field.
func (e *LogEvent) Float64(k string, v float64) *LogEvent {
	if e == nil {
		return nil
	}
	e.key(k)
	e.buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	return e
}

// Bool adds a boolean field.
func (e *LogEvent) Bool(k string, v bool) *LogEvent {
	if e == nil {
		return nil
	}
	e.key(k)
	e.buf.WriteString(strconv.FormatBool(v))
	return e
}

// Err adds an "error" field; a nil error adds nothing.
func (e *LogEvent) Err(err error) *LogEvent {
	if e == nil || err == nil {
		return e
	}
	return e.Str("error", err.Error())
}

// Time adds a timestamp field in RFC3339 with milliseconds.
func (e *LogEvent) Time(k string, t *time.Time) *LogEvent {
	if e == nil {
		return nil
	}
	e.key(k)
	b := e.buf.AvailableBuffer()
	b = append(b, '"')
	b = t.AppendFormat(b, "2006-01-02T15:04:05.000Z07:00")
	b = append(b, '"')
	e.buf.Write(b)
	return e
}

// Msg finishes the event with a message field, writes it to the logger's
// appenders, and returns the event to the pool. The event must not be used
// afterwards.
func (e *LogEvent) Msg(msg string) {
	if e == nil {
		return
	}
	e.key("msg")
	e.appendQuoted(msg)
	e.buf.WriteString("}\n")
	e.sink.OnEventEnd(e)
}

// Msgf is Msg with printf formatting.
func (e *LogEvent) Msgf(format string, args ...any) {
	if e == nil {
		return
	}
	e.Msg(fmt.Sprintf(format, args...))
}
