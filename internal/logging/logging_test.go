package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, l)

	l, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_ConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = "info"
	cfg.Console = &buf

	logger, closeFn, err := New(cfg)
	require.NoError(t, err)
	defer closeFn()

	logger.Debug().Msg("hidden")
	logger.Info().Str("component", "test").Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "component=")
}

func TestNew_WritesJSONFile(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = "info"
	cfg.Console = &buf
	cfg.File = filepath.Join(t.TempDir(), "logs", "electripro.log")

	logger, closeFn, err := New(cfg)
	require.NoError(t, err)
	logger.Info().Str("table", "obras").Msg("synced")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"table":"obras"`)
	assert.Contains(t, string(data), `"message":"synced"`)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Config{Level: "nope"})
	assert.Error(t, err)
}
