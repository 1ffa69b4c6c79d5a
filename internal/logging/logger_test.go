package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	logger.WithComponent("engine").
		With("file", "Main.java").
		Warn(context.Background(), errors.New("variant changed"), "discarding segment", "segment_id", "main")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "discarding segment", record["msg"])
	assert.Equal(t, "engine", record["component"])
	assert.Equal(t, "Main.java", record["file"])
	assert.Equal(t, "main", record["segment_id"])
	assert.Equal(t, "variant changed", record["error"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Format: "text", Output: &buf})

	logger.Debug(context.Background(), "hidden")
	logger.Info(context.Background(), "hidden")
	assert.Empty(t, buf.String())

	logger.Error(context.Background(), nil, "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNopLogger(t *testing.T) {
	logger := NewNop()
	assert.NotPanics(t, func() {
		logger.With("a", 1).WithComponent("x").Error(context.Background(), errors.New("e"), "msg")
	})
}
