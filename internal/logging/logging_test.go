// ABOUTME: Tests for logger setup: level filtering, format selection, and attr propagation.

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sehatops/handoff/internal/config"
)

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Info("hello", "component", "test")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "test", entry["component"])
}

func TestSetup_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("quiet")
	logger.Warn("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestSetup_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(config.LoggingConfig{Level: "chatty", Format: "json"}, &buf)

	logger.Debug("hidden")
	logger.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestColorHandler_WithAttrsCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(config.LoggingConfig{Level: "debug", Format: "text"}, &buf)

	logger.With("component", "relay").Info("started", "addr", ":8466")

	out := buf.String()
	assert.Contains(t, out, "started")
	assert.Contains(t, out, "component=")
	assert.Contains(t, out, "relay")
	assert.Contains(t, out, ":8466")
}
