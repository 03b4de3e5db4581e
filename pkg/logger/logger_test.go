package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swanpulse.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path, MaxSizeMB: 1})
	require.NoError(t, err)
	l.Info("hello")
	assert.FileExists(t, path)
}

func TestFieldsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.InfoLevel).With(String("component", "stream"))

	l.Debug("hidden")
	l.Warn("connection lost", Int("attempt", 2), Duration("delay_ms", 4000_000_000), Error(errors.New("eof")))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "stream", entry["component"])
	assert.Equal(t, float64(2), entry["attempt"])
	assert.Equal(t, float64(4000), entry["delay_ms"])
	assert.Equal(t, "eof", entry["error"])
}

func TestNilErrorField(t *testing.T) {
	k, v := Error(nil).GetKeyValue()
	assert.Equal(t, "error", k)
	assert.Nil(t, v)
}
