package config

import "time"

type SecurityConfig interface {
	GetSessionCookieName() string
	GetMaxSessionAge() time.Duration
	GetLoginRateLimit() int
	GetTrustProxyHeaders() bool
}

type Security struct {
	file *FileConfig
}

var _ SecurityConfig = Security{}

func (s Security) GetSessionCookieName() string {
	return GetEnv("SESSION_COOKIE", pick(s.file.Security.SessionCookie, "vistara_sid"))
}

// GetMaxSessionAge is how long an idle browser workspace stays in memory.
func (s Security) GetMaxSessionAge() time.Duration {
	return GetDuration("MAX_SESSION_AGE", pickDuration(s.file.Security.MaxSessionAge, 30*time.Minute))
}

// GetLoginRateLimit is the number of login attempts allowed per client IP per minute.
func (s Security) GetLoginRateLimit() int {
	limit := s.file.Security.LoginRateLimit
	if limit <= 0 {
		limit = 10
	}
	return GetInt("LOGIN_RATE_LIMIT", limit)
}

// GetTrustProxyHeaders reports whether X-Forwarded-For and X-Real-IP name the
// client. Only enable it behind a proxy that overwrites those headers.
func (s Security) GetTrustProxyHeaders() bool {
	return GetBool("TRUST_PROXY_HEADERS", s.file.Security.TrustProxyHeaders)
}
