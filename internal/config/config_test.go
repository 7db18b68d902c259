package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadAppliesYAMLOverlayAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
db:
  host: db
  port: 6543
ai:
  model: test-model
  timeout: 5s
`)
	writeFile(t, filepath.Join(dir, "config.test.yaml"), `
db:
  name: overlay
`)
	writeFile(t, filepath.Join(dir, "secrets.env"), "AI_API_KEY=from-secrets\n")

	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("UPLOAD_DIR", "/tmp/up")
	// godotenv does not overwrite, make sure the key starts unset
	t.Setenv("AI_API_KEY", "")
	require.NoError(t, os.Unsetenv("AI_API_KEY"))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db", cfg.DB.Host)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, "overlay", cfg.DB.Name)
	assert.Equal(t, "test-model", cfg.AI.Model)
	assert.Equal(t, 5*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "from-secrets", cfg.AI.APIKey)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, "/tmp/up", cfg.Storage.UploadDir)
	assert.Equal(t, int64(25<<20), cfg.Storage.MaxAttachmentBytes)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
}

func TestAIConfigIsConfigured(t *testing.T) {
	assert.False(t, AIConfig{}.IsConfigured())
	assert.False(t, AIConfig{APIKey: PlaceholderAPIKey}.IsConfigured())
	assert.True(t, AIConfig{APIKey: "k"}.IsConfigured())
}
