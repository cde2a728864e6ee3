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
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gemini-3-flash-preview", cfg.AI.TextModel)
	assert.Equal(t, "gemini-2.5-flash-image", cfg.AI.ImageModel)
	assert.Equal(t, time.Duration(0), cfg.AI.RequestTimeout)
	assert.Equal(t, DefaultFolderURL, cfg.Export.FolderURL)
	assert.Equal(t, 8*time.Second, cfg.Export.BannerDuration)
	assert.Equal(t, "memory", cfg.State.Store)
	assert.Equal(t, "ko", cfg.App.Locale)
	assert.Equal(t, time.Second, cfg.Server.PollInterval)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  locale: en
export:
  banner_duration: 3s
  s3:
    bucket: dishes
state:
  store: redis
`), 0o600))
	t.Setenv("CHEFNANO_SERVER_PORT", "9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "en", cfg.App.Locale)
	assert.Equal(t, 3*time.Second, cfg.Export.BannerDuration)
	assert.Equal(t, "dishes", cfg.Export.S3.Bucket)
	assert.Equal(t, "redis", cfg.State.Store)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr())
}

func TestLoadSecretsFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CHEFNANO_APP_ENVIRONMENT", "production")
	t.Setenv("CHEFNANO_SESSION_SECRET", "s3cr3t")
	t.Setenv("CHEFNANO_SESSION_SECURE", "true")
	t.Setenv("CHEFNANO_REDIS_PASSWORD", "hunter2")
	t.Setenv("CHEFNANO_EXPORT_S3_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("CHEFNANO_EXPORT_S3_SECRET_ACCESS_KEY", "secret-key")
	t.Setenv("CHEFNANO_EXPORT_S3_FORCE_PATH_STYLE", "true")
	t.Setenv("CHEFNANO_MONITORING_OTLP_ENDPOINT", "collector:4318")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "s3cr3t", cfg.Session.Secret)
	assert.True(t, cfg.Session.Secure)
	assert.Equal(t, "hunter2", cfg.Redis.Password)
	assert.Equal(t, "AKIATEST", cfg.Export.S3.AccessKeyID)
	assert.Equal(t, "secret-key", cfg.Export.S3.SecretAccessKey)
	assert.True(t, cfg.Export.S3.ForcePathStyle)
	assert.Equal(t, "collector:4318", cfg.Monitoring.OTLPEndpoint)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"BadStore", func(c *Config) { c.State.Store = "sqlite" }},
		{"BadLocale", func(c *Config) { c.App.Locale = "fr" }},
		{"BadPort", func(c *Config) { c.Server.Port = 0 }},
		{"ProductionWithoutSecret", func(c *Config) { c.App.Environment = "production" }},
		{"NoImageModel", func(c *Config) { c.AI.ImageModel = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("CHEFNANO_AI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")

	assert.Empty(t, AIConfig{}.ResolveAPIKey())

	t.Setenv("API_KEY", "generic")
	assert.Equal(t, "generic", AIConfig{}.ResolveAPIKey())

	t.Setenv("GEMINI_API_KEY", "gemini")
	assert.Equal(t, "gemini", AIConfig{}.ResolveAPIKey())

	assert.Equal(t, "configured", AIConfig{APIKey: "configured"}.ResolveAPIKey())
}

func TestOnChangeWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	assert.False(t, cfg.OnChange(func(*Config) {}, nil))
}
