package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/vistara-dashboard/session"
	"github.com/rs/zerolog/log"
)

// GuardOptions describe who may see a route.
type GuardOptions struct {
	RequireAuth  bool
	RequireAdmin bool
	// FallbackPath is where non-admins are sent when ShowDenied is off.
	FallbackPath string
	ShowDenied   bool
}

type guardOutcome int

const (
	guardRender guardOutcome = iota
	guardLoading
	guardLogin
	guardDenied
	guardFallback
)

// decide maps a session snapshot to what the guard does with the request.
// Nothing protected is rendered until the session has resolved.
func decide(snap session.Snapshot, opts GuardOptions) guardOutcome {
	needsUser := opts.RequireAuth || opts.RequireAdmin
	if !needsUser {
		return guardRender
	}
	switch snap.State {
	case session.StateInitializing, session.StateAuthenticating:
		return guardLoading
	}
	if snap.User == nil {
		return guardLogin
	}
	if opts.RequireAdmin && !snap.IsAdmin() {
		if opts.ShowDenied {
			return guardDenied
		}
		return guardFallback
	}
	return guardRender
}

// Guard wraps protected handlers. It must run after the workspace middleware.
func (s *Server) Guard(opts GuardOptions) func(http.HandlerFunc) http.HandlerFunc {
	if opts.FallbackPath == "" {
		opts.FallbackPath = RouteDashboard
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ws, ok := WorkspaceFrom(r.Context())
			if !ok {
				log.Error().Str("path", r.URL.Path).Msg("guard reached without a workspace")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			switch decide(ws.Session.Snapshot(), opts) {
			case guardRender:
				next(w, r)
			case guardLoading:
				s.renderLoading(w, r)
			case guardLogin:
				redirectSuccess(w, r, RouteLogin+"?next="+url.QueryEscape(r.URL.RequestURI()))
			case guardDenied:
				s.renderPage(w, r, http.StatusForbidden, "denied.html", pageData{Title: "Access denied"})
			case guardFallback:
				redirectSuccess(w, r, opts.FallbackPath)
			}
		}
	}
}

// RequireUser guards routes any signed-in user may see.
func (s *Server) RequireUser() func(http.HandlerFunc) http.HandlerFunc {
	return s.Guard(GuardOptions{RequireAuth: true})
}

// RequireAdmin guards admin routes, answering non-admins with access denied.
func (s *Server) RequireAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return s.Guard(GuardOptions{RequireAuth: true, RequireAdmin: true, ShowDenied: true})
}
