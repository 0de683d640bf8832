package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GCHAT_DB", "GCHAT_BACKEND", "GCHAT_LOG_LEVEL", "GEMINI_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_path = "/tmp/chats"
backend = "badger"
log_level = "debug"

[gemini]
api_key = "from-file"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/chats", cfg.DBPath)
	assert.Equal(t, "badger", cfg.Backend)
	assert.Equal(t, "from-file", cfg.Gemini.APIKey)

	t.Setenv("GCHAT_DB", "/elsewhere.db")
	t.Setenv("GCHAT_BACKEND", "sqlite")
	t.Setenv("GEMINI_API_KEY", "from-env")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere.db", cfg.DBPath)
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, "from-env", cfg.Gemini.APIKey)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	require.NoError(t, os.WriteFile(path, []byte(`backend = "postgres"`), 0o600))
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`log_level = "loud"`), 0o600))
	_, err = Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`backend = `), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)
	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
