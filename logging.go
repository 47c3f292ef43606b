package matsys

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// logLimiter suppresses repeats of the same message about the same subject.
type logLimiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	interval time.Duration
	now      func() time.Time
}

func newLogLimiter(interval time.Duration) *logLimiter {
	return &logLimiter{last: make(map[string]time.Time), interval: interval, now: time.Now}
}

// allow reports whether a message keyed by msg and subject may be logged now.
// An interval below zero means once per key.
func (l *logLimiter) allow(msg, subject string) bool {
	key := msg + "\x00" + subject

	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.now()
	if prev, ok := l.last[key]; ok {
		if l.interval < 0 || t.Sub(prev) < l.interval {
			return false
		}
	}
	l.last[key] = t

	return true
}

// warn logs a rate-limited warning.
func (l *logLimiter) warn(logger *slog.Logger, msg, subject string, args ...any) {
	if !l.allow(msg, subject) {
		return
	}

	logger.Warn(msg, args...)
}

// assertf reports a programmer error: panics in debug builds, logs otherwise.
func assertf(logger *slog.Logger, format string, args ...any) {
	msg := fmt.Sprintf("programmer error: "+format, args...)
	if debugAssertions {
		panic(msg)
	}

	logger.Error(msg)
}
