package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML configuration file. Environment variables
// take precedence over every value in it.
type FileConfig struct {
	Port    string `yaml:"port"`
	AppName string `yaml:"app_name"`
	Env     string `yaml:"env"`

	API struct {
		BaseURL       string            `yaml:"base_url"`
		Timeout       string            `yaml:"timeout"`
		BypassHeaders map[string]string `yaml:"bypass_headers"`
	} `yaml:"api"`

	State struct {
		Backend     string `yaml:"backend"`
		Path        string `yaml:"path"`
		Secret      string `yaml:"secret"`
		TokenIssuer string `yaml:"token_issuer"`
	} `yaml:"state"`

	Security struct {
		SessionCookie     string `yaml:"session_cookie"`
		MaxSessionAge     string `yaml:"max_session_age"`
		LoginRateLimit    int    `yaml:"login_rate_limit"`
		TrustProxyHeaders bool   `yaml:"trust_proxy_headers"`
	} `yaml:"security"`

	UI struct {
		Theme    string          `yaml:"theme"`
		Features map[string]bool `yaml:"features"`
	} `yaml:"ui"`
}

// ReadFile parses a YAML configuration file.
func ReadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[config ReadFile] read %s: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("[config ReadFile] parse %s: %w", path, err)
	}
	return &fc, nil
}
