package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8083, cfg.Port)
	assert.Equal(t, ":8083", cfg.Addr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 256, cfg.WSSendBuffer)
	assert.Equal(t, 10*time.Second, cfg.WSWriteTimeout)
	assert.Equal(t, "ping_me:online_users", cfg.PresenceKey)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port": 9000, "log_level": "debug", "ws_send_buffer": 32}`), 0o600))

	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DB_DSN", "postgres://u:p@db:5432/chat?sslmode=disable")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 32, cfg.WSSendBuffer)
	assert.Equal(t, "postgres://u:p@db:5432/chat?sslmode=disable", cfg.DBDSN)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadRejectsZeroBuffer(t *testing.T) {
	t.Setenv("WS_SEND_BUFFER", "0")
	_, err := Load("")
	require.Error(t, err)
}

func TestDevUsersFromEnv(t *testing.T) {
	t.Setenv("DEV_USERS", "alice,bob")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, cfg.DevUsers)
}
