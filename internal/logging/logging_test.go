package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("jobtrack", "test", "", &buf)

	logger.Info("hello", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "jobtrack", entry["service"])
	assert.Equal(t, "test", entry["version"])
	assert.Equal(t, "value", entry["key"])
}

func TestSetup_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("jobtrack", "test", "text", &buf)

	logger.Debug("details")
	assert.Contains(t, buf.String(), "msg=details")
}

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("jobtrack", "test", "json", &buf)

	err := oops.Code("USER_LOOKUP_FAILED").
		With("user_id", "42").
		Errorf("connection refused")

	LogError(logger, "request failed", err, "path", "/api/auth/me")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "USER_LOOKUP_FAILED", entry["code"])
	assert.Equal(t, "/api/auth/me", entry["path"])
	assert.Contains(t, entry["error"], "connection refused")
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("jobtrack", "test", "json", &buf)

	LogError(logger, "request failed", errors.New("standard error"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "standard error", entry["error"])
	assert.NotContains(t, entry, "code")
}
