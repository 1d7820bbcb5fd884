package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/vistara-dashboard/api"
	"github.com/jrsteele09/vistara-dashboard/apiclient"
	"github.com/jrsteele09/vistara-dashboard/internal/config"
	"github.com/jrsteele09/vistara-dashboard/query"
	"github.com/jrsteele09/vistara-dashboard/session"
	"github.com/jrsteele09/vistara-dashboard/storage"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env          string // Environment (e.g., "DEV", "PROD")
	appName      string
	mux          *http.ServeMux
	routes       []string
	config       config.Config
	client       *apiclient.Client
	api          *api.Services
	workspaces   *Workspaces
	templates    *templateSet
	limiter      *loginLimiter
	trustProxy   bool
	cookieName   string
	cookieMaxAge time.Duration
	defaultTheme string
	features     map[string]bool
	now          func() time.Time
}

type options struct {
	inspector    session.TokenInspector
	cacheOptions []query.Option
	now          func() time.Time
}

type Option func(*options)

// WithInspector replaces the unverified JWT inspector used for rehydration.
func WithInspector(i session.TokenInspector) Option {
	return func(o *options) {
		o.inspector = i
	}
}

// WithCacheOptions configures every per-browser query cache.
func WithCacheOptions(opts ...query.Option) Option {
	return func(o *options) {
		o.cacheOptions = append(o.cacheOptions, opts...)
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func New(cfg config.Config, client *apiclient.Client, backend storage.Backend, opts ...Option) (*Server, error) {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	services := api.NewServices(client)
	cacheOpts := append([]query.Option{
		query.WithClock(o.now),
		query.WithFetchTimeout(client.Timeout()),
		query.WithRetryable(apiclient.IsTransient),
	}, o.cacheOptions...)

	s := &Server{
		env:          cfg.GetEnv(),
		appName:      cfg.GetAppName(),
		mux:          http.NewServeMux(),
		config:       cfg,
		client:       client,
		api:          services,
		templates:    templates,
		limiter:      newLoginLimiter(cfg.GetLoginRateLimit(), o.now),
		trustProxy:   cfg.GetTrustProxyHeaders(),
		cookieName:   cfg.GetSessionCookieName(),
		cookieMaxAge: cfg.GetMaxSessionAge(),
		defaultTheme: cfg.GetThemeDefault(),
		features:     cfg.GetFeatureFlags(),
		now:          o.now,
	}
	s.workspaces = NewWorkspaces(backend, WorkspaceOptions{
		Authenticator: services.Auth,
		Inspector:     o.inspector,
		DefaultTheme:  s.defaultTheme,
		CacheOptions:  cacheOpts,
		InitTimeout:   client.Timeout(),
		Logger:        log.Logger,
		Now:           o.now,
	})

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Workspaces exposes the per-browser registry.
func (s *Server) Workspaces() *Workspaces {
	return s.workspaces
}

// Janitor evicts idle workspaces and stale rate-limit entries until ctx ends.
func (s *Server) Janitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.workspaces.Evict(s.cookieMaxAge); n > 0 {
				log.Debug().Int("evicted", n).Int("live", s.workspaces.Len()).Msg("evicted idle workspaces")
			}
			s.limiter.prune(time.Hour)
		}
	}
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	color, ok := MethodColors[method]
	if !ok {
		color = Gray
	}
	log.Debug().Msgf("[%s %-7s%s] %s", color, method, ResetColor, path)
}
