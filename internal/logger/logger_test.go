// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestFromContextAddsRunAndPaper(t *testing.T) {
	var buf bytes.Buffer
	l := Init(Config{Level: "debug", Format: "json"}, &buf)

	ctx, id := NewRun(context.Background())
	ctx = WithPaper(ctx, "Attention Is All You Need")
	FromContext(ctx, l).Info("resolved")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, id, line["run_id"])
	assert.Equal(t, "Attention Is All You Need", line["paper"])
	assert.Equal(t, "resolved", line["msg"])
	assert.Equal(t, id, RunID(ctx))
}

func TestInitRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Init(Config{Level: "warn", Format: "text"}, &buf)
	l.Info("hidden")
	assert.Empty(t, buf.String())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestFromContextEmpty(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background(), nil))
	assert.Empty(t, RunID(context.Background()))
}
