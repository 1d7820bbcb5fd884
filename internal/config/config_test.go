package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/vistara-dashboard/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("API_BASE_URL", "")
	t.Setenv("STATE_BACKEND", "")
	t.Setenv("TRUST_PROXY_HEADERS", "")

	c := config.New()
	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "http://localhost:8000", c.GetAPIBaseURL())
	require.Equal(t, 30*time.Second, c.GetAPITimeout())
	require.Equal(t, "sqlite", c.GetStateBackend())
	require.Equal(t, "light", c.GetThemeDefault())
	require.Equal(t, 10, c.GetLoginRateLimit())
	require.False(t, c.GetTrustProxyHeaders())
	require.True(t, c.GetFeatureFlags()["chatbot"])
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("API_BASE_URL", "https://api.example.com/")
	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("API_BYPASS_HEADERS", "ngrok-skip-browser-warning=true, X-Tunnel = on")
	t.Setenv("FEATURE_FLAGS", "-chatbot,beta")
	t.Setenv("THEME_DEFAULT", "dark")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	c := config.New()
	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "https://api.example.com", c.GetAPIBaseURL())
	require.Equal(t, 5*time.Second, c.GetAPITimeout())
	require.Equal(t, map[string]string{
		"ngrok-skip-browser-warning": "true",
		"X-Tunnel":                   "on",
	}, c.GetBypassHeaders())
	flags := c.GetFeatureFlags()
	require.False(t, flags["chatbot"])
	require.True(t, flags["beta"])
	require.Equal(t, "dark", c.GetThemeDefault())
	require.True(t, c.GetTrustProxyHeaders())
}

func TestLoadFile(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("STATE_BACKEND", "")
	t.Setenv("MAX_SESSION_AGE", "")

	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://staging.vistara.io
  bypass_headers:
    ngrok-skip-browser-warning: "1"
state:
  backend: keyring
security:
  max_session_age: 2h
ui:
  features:
    guides: false
`), 0o600))

	c, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://staging.vistara.io", c.GetAPIBaseURL())
	require.Equal(t, "keyring", c.GetStateBackend())
	require.Equal(t, 2*time.Hour, c.GetMaxSessionAge())
	require.Equal(t, "1", c.GetBypassHeaders()["ngrok-skip-browser-warning"])
	require.False(t, c.GetFeatureFlags()["guides"])

	t.Setenv("STATE_BACKEND", "memory")
	c, err = config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "memory", c.GetStateBackend())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
