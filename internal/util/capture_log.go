package util

import (
	"fmt"
	"sync"
	"time"

	"github.com/sjc5/tessera/internal/common"
)

const DefaultMaxCaptureLogs = 100

type CaptureLogEntry struct {
	Time    time.Time
	Level   string
	Message string
}

// CaptureLog keeps the most recent entries in memory for display next to a
// failed capture, and forwards everything to the wrapped logger.
type CaptureLog struct {
	next    common.Logger
	max     int
	mu      sync.Mutex
	entries []CaptureLogEntry
}

func NewCaptureLog(next common.Logger, max int) *CaptureLog {
	if max <= 0 {
		max = DefaultMaxCaptureLogs
	}
	return &CaptureLog{next: next, max: max}
}

func (l *CaptureLog) record(level, format string, args ...any) {
	entry := CaptureLogEntry{Time: time.Now(), Level: level, Message: fmt.Sprintf(format, args...)}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	l.mu.Unlock()
}

func (l *CaptureLog) Debugf(format string, args ...any) {
	l.record("debug", format, args...)
	l.next.Debugf(format, args...)
}

func (l *CaptureLog) Infof(format string, args ...any) {
	l.record("info", format, args...)
	l.next.Infof(format, args...)
}

func (l *CaptureLog) Warningf(format string, args ...any) {
	l.record("warn", format, args...)
	l.next.Warningf(format, args...)
}

func (l *CaptureLog) Errorf(format string, args ...any) {
	l.record("error", format, args...)
	l.next.Errorf(format, args...)
}

// Entries returns a copy, oldest first.
func (l *CaptureLog) Entries() []CaptureLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]CaptureLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *CaptureLog) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)   {}
func (NopLogger) Infof(string, ...any)    {}
func (NopLogger) Warningf(string, ...any) {}
func (NopLogger) Errorf(string, ...any)   {}
