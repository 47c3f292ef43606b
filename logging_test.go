package matsys

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogLimiter(t *testing.T) {
	now := time.Unix(0, 0)
	l := newLogLimiter(5 * time.Second)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("msg", "a"))
	assert.False(t, l.allow("msg", "a"))
	assert.True(t, l.allow("msg", "b"), "subjects are limited separately")
	assert.True(t, l.allow("other", "a"), "messages are limited separately")

	now = now.Add(4 * time.Second)
	assert.False(t, l.allow("msg", "a"))
	now = now.Add(time.Second)
	assert.True(t, l.allow("msg", "a"))
}

func TestLogLimiterOnce(t *testing.T) {
	now := time.Unix(0, 0)
	l := newLogLimiter(-1)
	l.now = func() time.Time { return now }

	sink := &logSink{}
	logger := slog.New(sink)
	l.warn(logger, "once", "x", "k", 1)
	now = now.Add(time.Hour)
	l.warn(logger, "once", "x", "k", 2)

	assert.Equal(t, 1, sink.count(slog.LevelWarn, "once"))
}
