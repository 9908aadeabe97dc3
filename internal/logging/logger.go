// Package logging provides leveled, subsystem-tagged logging for the agent core.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

var (
	currentLevel = int32(levelFromEnv())
	noEmoji      = os.Getenv("NO_EMOJI") == "1"
)

func levelFromEnv() Level {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if l, err := ParseLevel(v); err == nil {
			return l
		}
	}
	if os.Getenv("DEBUG") == "true" {
		return LevelDebug
	}
	return LevelInfo
}

// SetLevel sets the process-wide minimum level. Called once at startup from
// the --log-level flag.
func SetLevel(l Level) {
	atomic.StoreInt32(&currentLevel, int32(l))
}

func SetNoEmoji(v bool) {
	noEmoji = v
}

// Field is a structured key/value pair appended to a log line as key=value.
type Field struct {
	Key   string
	Value any
}

func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

func enabled(l Level) bool {
	return int32(l) >= atomic.LoadInt32(&currentLevel)
}

func emit(level Level, subsystem, msg string, fields []Field) {
	if !enabled(level) {
		return
	}
	marker := levelMarker(level)
	var b strings.Builder
	b.WriteString(marker)
	b.WriteString(" [")
	b.WriteString(subsystem)
	b.WriteString("] ")
	b.WriteString(msg)
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	log.Print(b.String())
}

func levelMarker(l Level) string {
	if noEmoji {
		return strings.ToUpper(l.String())
	}
	switch l {
	case LevelTrace:
		return "·"
	case LevelDebug:
		return "…"
	case LevelInfo:
		return "✓"
	case LevelWarn:
		return "⚠"
	case LevelError:
		return "✗"
	default:
		return "?"
	}
}

func Trace(subsystem, msg string, fields ...Field) { emit(LevelTrace, subsystem, msg, fields) }
func Debug(subsystem, msg string, fields ...Field) { emit(LevelDebug, subsystem, msg, fields) }
func Info(subsystem, msg string, fields ...Field)  { emit(LevelInfo, subsystem, msg, fields) }
func Warn(subsystem, msg string, fields ...Field)  { emit(LevelWarn, subsystem, msg, fields) }
func Error(subsystem, msg string, fields ...Field) { emit(LevelError, subsystem, msg, fields) }

// Truncate truncates a string to maxLen and adds ellipsis, flattening newlines
// so log lines stay one-per-entry.
func Truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
