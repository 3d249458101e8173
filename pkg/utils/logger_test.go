package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("info", "json", &buf)

	logger.WithField("search_id", "abc").
		WithFields(map[string]interface{}{"points": 3}).
		Info("View derived")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "View derived", line["msg"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "abc", line["search_id"])
	assert.Equal(t, float64(3), line["points"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("warn", "text", &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	assert.Empty(t, buf.String())
	assert.False(t, logger.IsDebug())

	logger.WithError(errors.New("boom")).Warn("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "boom")
}

func TestLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("verbose", "text", &buf)

	logger.Debug("hidden")
	logger.Infof("shown %d", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 1")
}
