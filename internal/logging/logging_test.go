package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.input))
		})
	}
}

func TestCLIHandler_Message(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelInfo))

	logger.Info("scored batch", "framework", "BANT", "contacts", 3)
	assert.Equal(t, "scored batch: framework=BANT contacts=3\n", buf.String())
}

func TestCLIHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelWarn))

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("shown warn")
	logger.Error("shown error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown warn")
	assert.Contains(t, out, "shown error")
}

func TestCLIHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelDebug)).
		With("tenant", "acme").
		WithGroup("server").
		WithGroup("http")

	logger.Debug("request", "status", 200)
	assert.Equal(t, "[server.http] request: tenant=acme status=200\n", buf.String())
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "JSON")
	logger.Debug("job done", "task", "score:batch")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "job done", record["msg"])
	assert.Equal(t, "DEBUG", record["level"])
	assert.Equal(t, "score:batch", record["task"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", "text")
	_, ok := logger.Handler().(*CLIHandler)
	assert.True(t, ok)
}
