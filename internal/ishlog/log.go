// Package ishlog is a thin leveled wrapper around the stdlib log package.
// ish does not pull in a structured-logging library — neither the teacher
// nor anything it spawns needs more than prefixed, timestamped lines — but
// bare log.Printf loses the call site, so this package adds that back the
// same way tjper-teleport's internal/log package does.
package ishlog

import (
	"fmt"
	"io"
	"log"
	"runtime"
	"strings"
)

// Logger wraps a stdlib *log.Logger with leveled helpers that prefix the
// caller's file:line.
type Logger struct {
	*log.Logger
}

// New creates a Logger writing to w with the given prefix.
func New(w io.Writer, prefix string) *Logger {
	return &Logger{log.New(w, prefix, log.Ltime|log.Lmicroseconds)}
}

// Errorf logs at error level.
func (l *Logger) Errorf(msg string, args ...interface{}) {
	file, line := caller(2)
	l.Printf("[ERROR] %s:%d --- %s", file, line, fmt.Sprintf(msg, args...))
}

// Warnf logs at warn level.
func (l *Logger) Warnf(msg string, args ...interface{}) {
	file, line := caller(2)
	l.Printf("[WARN] %s:%d --- %s", file, line, fmt.Sprintf(msg, args...))
}

// Infof logs at info level.
func (l *Logger) Infof(msg string, args ...interface{}) {
	file, line := caller(2)
	l.Printf("[INFO] %s:%d --- %s", file, line, fmt.Sprintf(msg, args...))
}

func caller(depth int) (string, int) {
	_, file, line, ok := runtime.Caller(depth)
	if !ok {
		return "???", 0
	}
	parts := strings.Split(file, "/")
	if len(parts) > 3 {
		file = strings.Join(parts[len(parts)-3:], "/")
	}
	return file, line
}
