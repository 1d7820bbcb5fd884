package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	envVar        = "ENV"
	apiBaseURLVar = "API_BASE_URL"
	apiTimeoutVar = "API_TIMEOUT"
	bypassVar     = "API_BYPASS_HEADERS"
)

type EnvVars struct {
	file *FileConfig
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, pick(e.file.Port, "8080"))
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return GetEnv(appNameVar, pick(e.file.AppName, "Vistara Dashboard"))
}

func (e EnvVars) GetEnv() string {
	return GetEnv(envVar, pick(e.file.Env, "DEV"))
}

type API struct {
	file *FileConfig
}

var _ APIConfig = API{}

// GetAPIBaseURL returns the upstream host without the /api/v1 suffix.
func (a API) GetAPIBaseURL() string {
	return strings.TrimSuffix(GetEnv(apiBaseURLVar, pick(a.file.API.BaseURL, "http://localhost:8000")), "/")
}

func (a API) GetAPITimeout() time.Duration {
	return GetDuration(apiTimeoutVar, pickDuration(a.file.API.Timeout, 30*time.Second))
}

// GetBypassHeaders returns extra headers sent on every upstream request.
// API_BYPASS_HEADERS uses "Name=value,Other=value".
func (a API) GetBypassHeaders() map[string]string {
	headers := make(map[string]string, len(a.file.API.BypassHeaders))
	for k, v := range a.file.API.BypassHeaders {
		headers[k] = v
	}
	for _, pair := range strings.Split(os.Getenv(bypassVar), ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			continue
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return headers
}

type State struct {
	file *FileConfig
}

var _ StateConfig = State{}

// GetStateBackend returns one of memory, sqlite or keyring.
func (s State) GetStateBackend() string {
	return strings.ToLower(GetEnv("STATE_BACKEND", pick(s.file.State.Backend, "sqlite")))
}

func (s State) GetStatePath() string {
	return GetEnv("STATE_PATH", pick(s.file.State.Path, "./data/dashboard-state.db"))
}

// GetStateSecret enables at-rest encryption of persisted browser state when set.
func (s State) GetStateSecret() string {
	return GetEnv("STATE_SECRET", s.file.State.Secret)
}

// GetTokenIssuer enables signature verification of persisted tokens when set.
func (s State) GetTokenIssuer() string {
	return GetEnv("TOKEN_ISSUER", s.file.State.TokenIssuer)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func GetInt(envVar string, defaultValue int) int {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func GetBool(envVar string, defaultValue bool) bool {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func pick(fileValue, defaultValue string) string {
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}

func pickDuration(fileValue string, defaultValue time.Duration) time.Duration {
	if fileValue == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(fileValue)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
