// Package logger writes one JSON object per line to stderr. Values under
// secret-like keys are masked and email addresses are partially redacted.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	}
	return "INFO"
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level.
// Anything else yields INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	}
	return INFO
}

// Logger tags entries with a component name.
type Logger struct {
	component string
	level     Level
	redactPII bool

	mu  *sync.Mutex
	out io.Writer
}

var (
	stderrMu sync.Mutex
	root     = &Logger{level: levelFromEnv(), redactPII: true, mu: &stderrMu, out: os.Stderr}
)

func levelFromEnv() Level { return ParseLevel(os.Getenv("LOG_LEVEL")) }

// New returns a logger for component sharing the process-wide settings.
func New(component string) *Logger {
	l := *root
	l.component = component
	return &l
}

func Debug(msg string, kv ...any) { root.write(DEBUG, msg, kv) }
func Info(msg string, kv ...any)  { root.write(INFO, msg, kv) }
func Warn(msg string, kv ...any)  { root.write(WARN, msg, kv) }
func Error(msg string, kv ...any) { root.write(ERROR, msg, kv) }

func (l *Logger) Debug(msg string, kv ...any) { l.write(DEBUG, msg, kv) }
func (l *Logger) Info(msg string, kv ...any)  { l.write(INFO, msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)  { l.write(WARN, msg, kv) }
func (l *Logger) Error(msg string, kv ...any) { l.write(ERROR, msg, kv) }

// write encodes kv as alternating keys and values. A trailing key without a
// value is dropped.
func (l *Logger) write(level Level, msg string, kv []any) {
	if level < l.level {
		return
	}

	entry := make(map[string]string, 4+len(kv)/2)
	entry["time"] = time.Now().UTC().Format(time.RFC3339)
	entry["level"] = level.String()
	entry["msg"] = msg
	if l.component != "" {
		entry["component"] = l.component
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		entry[key] = l.scrub(key, fmt.Sprint(kv[i+1]))
	}

	line, _ := json.Marshal(entry)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Write(append(line, '\n'))
}

func (l *Logger) scrub(key, val string) string {
	if isSecretKey(key) {
		return "[REDACTED]"
	}
	if l.redactPII {
		return redactPIIValue(key, val)
	}
	return val
}
