package main

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger("warn", &buf)

	logger.Info("ws_connected")
	assert.Empty(t, buf.String(), "info is below warn")

	logger.Warn("ws_retry_scheduled", "retry_count", 2)
	out := buf.String()
	assert.Regexp(t, regexp.MustCompile(`time="?\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}"?`), out)
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "msg=ws_retry_scheduled")
	assert.Contains(t, out, "retry_count=2")
}

func TestSetupLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger("verbose", &buf)

	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
