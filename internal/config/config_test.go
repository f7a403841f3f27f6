package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file-chat-sage", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.Equal(t, "https://api.elevenlabs.io/v1", cfg.Knowledge.BaseURL)
	assert.Equal(t, "data/credentials.json", cfg.Credential.Path)
	assert.Equal(t, "chat.transcript.persist", cfg.RabbitMQ.TranscriptQueueName)
	assert.Equal(t, 10, cfg.MySQL.MaxIdleConns)
	assert.Equal(t, 50, cfg.MySQL.MaxOpenConns)
	assert.Equal(t, 60, cfg.MySQL.ConnMaxLifeMinute)
	assert.Equal(t, 3, cfg.Redis.DialTimeoutSeconds)
	assert.Equal(t, 2, cfg.Redis.ReadTimeoutSeconds)
}

func TestPoolSettingsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[mysql]
max_idle_conns = 4
max_open_conns = 16
conn_max_life_minute = 15

[redis]
dial_timeout_seconds = 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.MySQL.MaxIdleConns)
	assert.Equal(t, 16, cfg.MySQL.MaxOpenConns)
	assert.Equal(t, 15, cfg.MySQL.ConnMaxLifeMinute)
	assert.Equal(t, 1, cfg.Redis.DialTimeoutSeconds)
	// Sections absent from the file keep their defaults.
	assert.Equal(t, 2, cfg.Redis.WriteTimeoutSeconds)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
port = 9090

[knowledge]
base_url = "http://localhost:8000/v1"

[mysql]
user = "svc"
password = "pw"
db = "appdb"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "http://localhost:8000/v1", cfg.Knowledge.BaseURL)
	assert.Contains(t, cfg.MySQLDSN(), "svc:pw@tcp(127.0.0.1:3306)/appdb")
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("APP_PORT", "7070")
	t.Setenv("KNOWLEDGE_BASE_URL", "http://kb.internal/v1")
	t.Setenv("MINIO_SECURE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.App.Port)
	assert.Equal(t, "http://kb.internal/v1", cfg.Knowledge.BaseURL)
	assert.True(t, cfg.MinIO.Secure)
}
