package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-9)
	assert.InDelta(t, 0.1, cfg.LLM.FilterTemperature, 1e-9)
	assert.Equal(t, 200, cfg.LLM.FilterMaxTokens)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.InDelta(t, 0.6, cfg.Vision.MinScore, 1e-9)
	assert.Equal(t, 5, cfg.Image.MaxFiles)
	assert.Equal(t, int64(25*1024*1024), cfg.Image.MaxFileBytes)
	assert.Equal(t, int64(25*1024*1024), cfg.Storage.QuotaBytes)
	assert.Equal(t, 720*time.Hour, cfg.Storage.Retention)
	assert.Equal(t, "English", cfg.I18n.DefaultLanguage)

	// 缺少金鑰不會讓啟動失敗
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-1234567890")
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/tmp/creds.json")
	t.Setenv("APP_VISION_CONCURRENCY", "7")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "sk-test-1234567890", cfg.LLM.APIKey)
	assert.Equal(t, "/tmp/creds.json", cfg.Vision.Credentials)
	assert.Equal(t, 7, cfg.Vision.Concurrency)
}

func TestLoadConfigAPIKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("sk-from-file\n"), 0o600))

	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", cfg.LLM.APIKey)
}

func TestLoadConfigRejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "carrier-pigeon")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported llm provider")
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "(not set)", maskAPIKey(""))
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "sk-a...wxyz", maskAPIKey("sk-abcdefghijklmnopqrstuvwxyz"))
}
