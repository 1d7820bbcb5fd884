package config

import "time"

type Config interface {
	EnvConfig
	APIConfig
	StateConfig
	SecurityConfig
	UIConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

type APIConfig interface {
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
	GetBypassHeaders() map[string]string
}

type StateConfig interface {
	GetStateBackend() string
	GetStatePath() string
	GetStateSecret() string
	GetTokenIssuer() string
}

type mainConfig struct {
	EnvVars
	API
	State
	Security
	UI
}

// New returns a configuration backed by environment variables only.
func New() Config {
	return newMainConfig(&FileConfig{})
}

// Load returns a configuration backed by environment variables with the
// YAML file at path as a fallback layer. An empty path behaves like New.
func Load(path string) (Config, error) {
	if path == "" {
		return New(), nil
	}
	file, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return newMainConfig(file), nil
}

func newMainConfig(file *FileConfig) mainConfig {
	return mainConfig{
		EnvVars:  EnvVars{file: file},
		API:      API{file: file},
		State:    State{file: file},
		Security: Security{file: file},
		UI:       UI{file: file},
	}
}
