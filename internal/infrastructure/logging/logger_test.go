package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_AddsServiceAndContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{
		Level:       "info",
		Format:      "json",
		Output:      &buf,
		ServiceName: "ticket-workflow",
		Environment: "test",
	})

	ctx := WithUserID(WithRequestID(context.Background(), "req-1"), "user-1")
	logger.With("component", "csv").InfoContext(ctx, "csv import finished", "updated", 2)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "csv import finished", record["msg"])
	assert.Equal(t, "ticket-workflow", record["service"])
	assert.Equal(t, "test", record["environment"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, "user-1", record["user_id"])
	assert.Equal(t, "csv", record["component"])
	assert.Equal(t, float64(2), record["updated"])
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "warn", Output: &buf})

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
