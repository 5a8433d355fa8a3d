package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := NewLogger("warn", false, buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "warn", entry["level"])
}

func TestNewLoggerVerboseForcesDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := NewLogger("error", true, buf)
	require.NoError(t, err)

	logger.Debug("details")
	assert.Contains(t, buf.String(), `"msg":"details"`)
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, err := NewLogger("loud", false, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid log level "loud"`)
}
