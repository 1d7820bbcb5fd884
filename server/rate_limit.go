package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// loginLimiter throttles login attempts per client IP.
type loginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	perMin   int
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLoginLimiter(perMinute int, now func() time.Time) *loginLimiter {
	return &loginLimiter{
		limiters: make(map[string]*limiterEntry),
		perMin:   perMinute,
		now:      now,
	}
}

func (l *loginLimiter) allow(ip string) bool {
	if l.perMin <= 0 {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.limiters[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)}
		l.limiters[ip] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// prune forgets addresses that have been quiet for longer than idle.
func (l *loginLimiter) prune(idle time.Duration) {
	cutoff := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
		}
	}
}

// LoginRateLimit answers 429 once an address exceeds its login attempts.
func (s *Server) LoginRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, s.trustProxy)
		if !s.limiter.allow(ip) {
			log.Warn().Str("ip", ip).Str("path", r.URL.Path).Msg("login rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Minute.Seconds())))
			s.renderPage(w, r, http.StatusTooManyRequests, "login.html", pageData{
				Title: "Sign in",
				Error: "Too many login attempts, please try again later",
				Form:  map[string]string{"email": r.FormValue("email"), "next": r.FormValue("next")},
			})
			return
		}
		next(w, r)
	}
}
