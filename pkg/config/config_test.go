package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "en", cfg.LabelLang)
	assert.Equal(t, 10, cfg.Edgar.RateLimit)
	assert.Equal(t, 30*24*time.Hour, cfg.Cache.MaxAge)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = "9090"
db_path = "/tmp/cache.db"
label_lang = "en-US"

[edgar]
user_agent = "Example Corp (dev@example.com)"
rate_limit = 5

[cache]
max_age = 3600000000000
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/tmp/cache.db", cfg.DBPath)
	assert.Equal(t, "en-US", cfg.LabelLang)
	assert.Equal(t, "Example Corp (dev@example.com)", cfg.Edgar.UserAgent)
	assert.Equal(t, 5, cfg.Edgar.RateLimit)
	assert.Equal(t, time.Hour, cfg.Cache.MaxAge)
}
