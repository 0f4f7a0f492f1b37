package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BACKEND_URL", "BACKEND_TIMEOUT_SECONDS", "SESSION_DRIVER", "SESSION_PATH",
		"WATCH_SCHEDULE", "WATCH_PASS_DIR", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
	// godotenv reads .env from the working directory
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, "/registration", cfg.Backend.Endpoints.Registration)
	assert.Equal(t, "/admin/login", cfg.Backend.Endpoints.AdminSignIn)
	assert.Equal(t, "sqlite", cfg.Session.Driver)
	assert.Equal(t, 256, cfg.Pass.SizePixels)
	assert.Equal(t, "@every 1m", cfg.Watch.Schedule)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  base_url: "https://api.example.com/"
  timeout_seconds: 5
  endpoints:
    profile: "/me"
session:
  driver: "memory"
log:
  format: "json"
`), 0o600))
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WATCH_SCHEDULE", "0 */5 * * * *")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, "/me", cfg.Backend.Endpoints.Profile)
	assert.Equal(t, "/auth/signin", cfg.Backend.Endpoints.SignIn)
	assert.Equal(t, "memory", cfg.Session.Driver)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "0 */5 * * * *", cfg.Watch.Schedule)

	t.Setenv("BACKEND_URL", "http://override:9000")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://override:9000", cfg.Backend.BaseURL)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	cases := map[string]string{
		"RelativeURL":   "backend:\n  base_url: \"localhost\"\n",
		"Endpoint":      "backend:\n  endpoints:\n    profile: \"me\"\n",
		"Driver":        "session:\n  driver: \"redis\"\n",
		"PassTooSmall":  "pass:\n  size_pixels: 16\n",
		"NegativeDelay": "backend:\n  timeout_seconds: -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := Load(path)
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}
}
