package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ochotona/internal/core/apperror"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{EnvFile: missingEnvFile(t), Lookup: envMap(nil)})
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.JSON)
	assert.Equal(t, SourceDefault, cfg.Sources["apiUrl"])
	require.NoError(t, cfg.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ochotona.yaml")
	require.NoError(t, os.WriteFile(file, []byte("apiUrl: http://file:1\ntimeout: 5s\nlogLevel: debug\njson: true\n"), 0o600))
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("OCHOTONA_API_URL=http://dotenv:2\nAPP_ENV=production\n"), 0o600))

	cfg, err := Load(LoadOptions{
		ConfigFile: file,
		EnvFile:    dotenv,
		Lookup:     envMap(map[string]string{EnvTimeout: "12"}),
	})
	require.NoError(t, err)

	assert.Equal(t, "http://dotenv:2", cfg.APIURL)
	assert.Equal(t, SourceDotEnv, cfg.Sources["apiUrl"])
	assert.Equal(t, 12*time.Second, cfg.Timeout)
	assert.Equal(t, SourceEnv, cfg.Sources["timeout"])
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, SourceFile, cfg.Sources["logLevel"])
	assert.True(t, cfg.JSON)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_ExplicitFalseFromEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "c.yml")
	require.NoError(t, os.WriteFile(file, []byte("json: true\n"), 0o600))

	cfg, err := Load(LoadOptions{
		EnvFile: missingEnvFile(t),
		Lookup:  envMap(map[string]string{EnvConfig: file, EnvJSON: "false"}),
	})
	require.NoError(t, err)
	assert.False(t, cfg.JSON)
	assert.Equal(t, SourceEnv, cfg.Sources["json"])
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml"), Lookup: envMap(nil)})
	require.Error(t, err)

	_, err = Load(LoadOptions{EnvFile: missingEnvFile(t), Lookup: envMap(map[string]string{EnvTimeout: "soon"})})
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("apiUrl: [\n"), 0o600))
	_, err = LoadFile(bad)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"relative url", func(c *Config) { c.APIURL = "localhost" }, "apiUrl"},
		{"ftp url", func(c *Config) { c.APIURL = "ftp://x" }, "apiUrl"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"unknown level", func(c *Config) { c.LogLevel = "loud" }, "logLevel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}
