package config

import (
	"os"
	"strings"
)

type UIConfig interface {
	GetThemeDefault() string
	GetFeatureFlags() map[string]bool
}

type UI struct {
	file *FileConfig
}

var _ UIConfig = UI{}

func (u UI) GetThemeDefault() string {
	theme := GetEnv("THEME_DEFAULT", pick(u.file.UI.Theme, "light"))
	if theme != "dark" {
		return "light"
	}
	return theme
}

// GetFeatureFlags merges file flags with FEATURE_FLAGS ("chatbot,guides,-sync").
// A leading minus disables a flag.
func (u UI) GetFeatureFlags() map[string]bool {
	flags := map[string]bool{
		"chatbot": true,
		"guides":  true,
		"sync":    true,
	}
	for k, v := range u.file.UI.Features {
		flags[k] = v
	}
	for _, raw := range strings.Split(os.Getenv("FEATURE_FLAGS"), ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if strings.HasPrefix(name, "-") {
			flags[strings.TrimPrefix(name, "-")] = false
			continue
		}
		flags[name] = true
	}
	return flags
}
