// Package log is a small, pooled, appender-based logger for the arena
// processes: fluent field chaining, JSON lines, console and size-rotated
// file output, and hot-reloadable configuration.
package log

import (
	"fmt"
	"strings"
)

// Level is the severity of a log event.
type Level uint32

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	}
	return fmt.Sprintf("level(%d)", uint32(l))
}

// ParseLevel converts a level name to a Level, defaulting to InfoLevel on
// anything unrecognized.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	}
	return InfoLevel
}
