package image

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Logger queues the diagnostic lines of one request so they can be written
// together when the response is sent.
type Logger struct {
	mu    sync.Mutex
	lines []logLine
}

type logLine struct {
	at  time.Time
	msg string
}

// NewLogger returns an empty request log.
func NewLogger() *Logger {
	return &Logger{}
}

// Log appends a formatted line.
func (l *Logger) Log(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, logLine{at: time.Now(), msg: fmt.Sprintf(format, args...)})
}

// Lines returns the queued messages in order.
func (l *Logger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	for i, line := range l.lines {
		out[i] = line.msg
	}
	return out
}

// Flush writes every queued line to logger with attrs appended, then empties
// the queue.
func (l *Logger) Flush(logger *slog.Logger, attrs ...any) {
	l.mu.Lock()
	lines := l.lines
	l.lines = nil
	l.mu.Unlock()

	if logger == nil {
		logger = slog.Default()
	}
	for _, line := range lines {
		args := append([]any{"line", line.msg, "at", line.at.Format(time.RFC3339Nano)}, attrs...)
		logger.Info("request_log", args...)
	}
}
