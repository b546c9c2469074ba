package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLevelMapping(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LevelVerbose.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LevelInfo.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LevelWarning.SlogLevel())
	assert.Equal(t, slog.LevelError, LevelError.SlogLevel())
	assert.Equal(t, "WARN", LevelWarning.String())
}

func TestSlogObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	obs := NewSlogObserver(logger)

	obs.OnEvent(context.Background(), Event{
		Type:      "store.set",
		Level:     LevelInfo,
		Timestamp: time.Now(),
		Source:    "trips",
		Data:      map[string]any{"key": "stops", "chunks": 3},
	})
	obs.OnEvent(context.Background(), Event{
		Type:   "store.get.miss",
		Level:  LevelVerbose,
		Source: "trips",
	})

	out := buf.String()
	assert.Contains(t, out, "msg=store.set")
	assert.Contains(t, out, "source=trips")
	assert.Contains(t, out, "key=stops")
	assert.Contains(t, out, "chunks=3")
	assert.False(t, strings.Contains(out, "store.get.miss"), "debug event should be filtered")
}

func TestNoOpObserver(t *testing.T) {
	var obs Observer = NoOpObserver{}
	obs.OnEvent(context.Background(), Event{Type: "store.set"})
}
