package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}

	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_Format(t *testing.T) {
	var buf bytes.Buffer

	New(&buf, "info", "json").Info("hello", slog.String("k", "v"))
	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"k":"v"`)

	buf.Reset()
	New(&buf, "info", "text").Info("hello", slog.String("k", "v"))
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "k=v")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer

	New(&buf, "warn", "text").Info("dropped")
	assert.Empty(t, buf.String())
}

func TestContextRoundTrip(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	var buf bytes.Buffer
	l := New(&buf, "info", "text")
	ctx := NewContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}
