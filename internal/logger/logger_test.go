package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GruborIvan/taskmanager/internal/logger"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, logger.ParseLevel(in), in)
	}
}

func TestSetupWriter_JSONWithSource(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger.SetupWriter(&buf, slog.LevelInfo)

	slog.Debug("hidden")
	slog.Info("visible", "task_id", "t-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "t-1", entry["task_id"])
	assert.Contains(t, entry, "source")
}

func TestFromContext(t *testing.T) {
	assert.Same(t, slog.Default(), logger.FromContext(context.Background()))

	l := slog.Default().With("command_id", "c-1")
	ctx := logger.WithContext(context.Background(), l)
	assert.Same(t, l, logger.FromContext(ctx))
}
