// Package logger provides logging implementations for userhub.
package logger

import (
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/identkit/userhub/pkg/interfaces"
)

// Level ordering used for filtering.
var levels = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
}

// ConsoleLogger writes structured log lines to the standard logger.
type ConsoleLogger struct {
	level string
	base  map[string]interface{}
	out   *log.Logger
}

// New creates a console logger filtering below the given level. Unknown
// levels fall back to "info".
func New(level string) interfaces.Logger {
	if _, ok := levels[level]; !ok {
		level = "info"
	}
	return &ConsoleLogger{
		level: level,
		out:   log.New(os.Stderr, "", log.LstdFlags),
	}
}

// NewTestLogger creates a logger for testing.
func NewTestLogger() interfaces.Logger {
	return New("debug")
}

// Debug logs debug level messages
func (l *ConsoleLogger) Debug(msg string, fields ...map[string]interface{}) {
	l.write("debug", msg, fields...)
}

// Info logs info level messages
func (l *ConsoleLogger) Info(msg string, fields ...map[string]interface{}) {
	l.write("info", msg, fields...)
}

// Warn logs warning level messages
func (l *ConsoleLogger) Warn(msg string, fields ...map[string]interface{}) {
	l.write("warn", msg, fields...)
}

// Error logs error level messages
func (l *ConsoleLogger) Error(msg string, err error, fields ...map[string]interface{}) {
	if err != nil {
		fields = append([]map[string]interface{}{{"error": err.Error()}}, fields...)
	}
	l.write("error", msg, fields...)
}

// Fatal logs fatal level messages and exits
func (l *ConsoleLogger) Fatal(msg string, err error, fields ...map[string]interface{}) {
	l.Error(msg, err, fields...)
	os.Exit(1)
}

// WithFields returns a logger carrying the given fields on every line.
func (l *ConsoleLogger) WithFields(fields map[string]interface{}) interfaces.Logger {
	merged := make(map[string]interface{}, len(l.base)+len(fields))
	for k, v := range l.base {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &ConsoleLogger{level: l.level, base: merged, out: l.out}
}

func (l *ConsoleLogger) write(level, msg string, fields ...map[string]interface{}) {
	if levels[level] < levels[l.level] {
		return
	}

	line := fmt.Sprintf("[%s] %s", level, msg)
	line += formatFields(l.base)
	for _, m := range fields {
		line += formatFields(m)
	}
	l.out.Println(line)
}

// formatFields renders a field map in deterministic key order.
func formatFields(m map[string]interface{}) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for _, k := range keys {
		out += fmt.Sprintf(" %s=%v", k, m[k])
	}
	return out
}
