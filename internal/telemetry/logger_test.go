package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock handler to inspect log records
type mockHandler struct {
	mu      sync.Mutex
	records []slog.Record
	enabled bool
}

func (h *mockHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.enabled
}

func (h *mockHandler) Handle(ctx context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record)
	return nil
}

func (h *mockHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *mockHandler) WithGroup(name string) slog.Handler       { return h }

func TestMultiHandler_FansOut(t *testing.T) {
	a := &mockHandler{enabled: true}
	b := &mockHandler{enabled: true}
	m := &multiHandler{handlers: []slog.Handler{a, b}}

	logger := slog.New(m)
	logger.Info("scan complete", "package", "lodash")

	require.Len(t, a.records, 1)
	require.Len(t, b.records, 1)
	assert.Equal(t, "scan complete", a.records[0].Message)
}

func TestMultiHandler_EnabledIfAny(t *testing.T) {
	a := &mockHandler{enabled: false}
	b := &mockHandler{enabled: true}
	m := &multiHandler{handlers: []slog.Handler{a, b}}

	assert.True(t, m.Enabled(context.Background(), slog.LevelInfo))

	b.enabled = false
	assert.False(t, m.Enabled(context.Background(), slog.LevelInfo))
}

func TestLogHelpers(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	defer slog.SetDefault(prev)
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	LogDebug("debug msg", "k", "v")
	LogInfo("info msg")
	LogError("error msg", assert.AnError)

	out := buf.String()
	assert.Contains(t, out, "debug msg")
	assert.Contains(t, out, "info msg")
	assert.Contains(t, out, "error msg")
	assert.Contains(t, out, assert.AnError.Error())
}
