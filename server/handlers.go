package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/jrsteele09/vistara-dashboard/api"
	"github.com/jrsteele09/vistara-dashboard/apiclient"
	"github.com/jrsteele09/vistara-dashboard/clients"
	apperrors "github.com/jrsteele09/vistara-dashboard/internal/errors"
	"github.com/jrsteele09/vistara-dashboard/query"
	"github.com/jrsteele09/vistara-dashboard/session"
	"github.com/rs/zerolog/log"
)

// IndexHandler sends the browser wherever its session says it belongs.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, _ := WorkspaceFrom(r.Context())
		switch ws.Session.State() {
		case session.StateInitializing, session.StateAuthenticating:
			s.renderLoading(w, r)
		case session.StateAuthenticated:
			redirectSuccess(w, r, RouteDashboard)
		default:
			redirectSuccess(w, r, RouteLogin)
		}
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Backend   string `json:"backend"`
	Error     string `json:"error,omitempty"`
	Workspace int    `json:"workspaces"`
}

// HealthHandler reports this process and the reachability of the backend.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Backend: "ok", Workspace: s.workspaces.Len()}
		status := http.StatusOK
		if err := s.client.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Backend = "unreachable"
			resp.Error = apiclient.Message(err)
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// fetch reads key through the request's workspace cache.
func fetch[T any](r *http.Request, key query.Key, fn query.Fetcher[T]) query.Result[T] {
	ws, _ := WorkspaceFrom(r.Context())
	return query.Get(r.Context(), ws.Cache, key, fn)
}

// mutate runs fn and invalidates targets in the request's workspace cache.
func mutate[T any](r *http.Request, fn func(ctx context.Context) (T, error), targets ...query.Target) (T, error) {
	ws, _ := WorkspaceFrom(r.Context())
	return query.Mutate(r.Context(), ws.Cache, fn, targets...)
}

func isAuthFailure(err error) bool {
	return errors.Is(err, apperrors.ErrUnauthorized) ||
		errors.Is(err, apperrors.ErrSessionExpired) ||
		errors.Is(err, apperrors.ErrNotAuthenticated)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrEmptyPayload):
		return http.StatusBadGateway
	case errors.Is(err, apperrors.ErrInvalidInput), errors.Is(err, apperrors.ErrEnvelope),
		errors.Is(err, apperrors.ErrBadRequest), errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrUnprocessable):
		return http.StatusUnprocessableEntity
	case apiclient.IsTransient(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// loginRedirect sends a browser whose session the backend rejected back to
// the login page, remembering where it was.
func loginRedirect(w http.ResponseWriter, r *http.Request) {
	next := r.URL.RequestURI()
	if r.Method != http.MethodGet {
		next = ""
		if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host {
			next = ref.RequestURI()
		}
	}
	redirectSuccess(w, r, RouteLogin+"?next="+url.QueryEscape(safeNext(next)))
}

// pageFailed renders a page whose data could not be loaded. Transient
// failures keep a retry link in the notice.
func (s *Server) pageFailed(w http.ResponseWriter, r *http.Request, err error, title string) {
	if isAuthFailure(err) {
		loginRedirect(w, r)
		return
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Err(err).Str("path", r.URL.Path).Msg("page data failed to load")
	}
	if status == http.StatusForbidden {
		s.renderPage(w, r, status, "denied.html", pageData{Title: "Access denied"})
		return
	}
	s.renderPage(w, r, status, "error.html", pageData{
		Title: title,
		Error: userMessage(err),
		Data: errorView{
			Retry:     apiclient.IsTransient(err),
			RetryPath: r.URL.RequestURI(),
		},
	})
}

type errorView struct {
	Retry     bool
	RetryPath string
}

// actionFailed re-renders the form a failed action came from with the error
// inline, instead of redirecting away from the user's input.
func (s *Server) actionFailed(w http.ResponseWriter, r *http.Request, err error, page string, data pageData) {
	if isAuthFailure(err) {
		loginRedirect(w, r)
		return
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Err(err).Str("path", r.URL.Path).Msg("action failed")
	}
	if status != http.StatusForbidden && status != http.StatusNotFound {
		status = http.StatusUnprocessableEntity
	}
	data.Error = userMessage(err)
	s.renderPage(w, r, status, page, data)
}

// userMessage is the text shown for err: the backend's own message when
// there is one, or the failed field for local validation.
func userMessage(err error) string {
	var verr *api.ValidationError
	if errors.As(err, &verr) {
		field := strings.ReplaceAll(verr.Field, "_", " ")
		if field != "" {
			field = strings.ToUpper(field[:1]) + field[1:]
		}
		return field + " " + verr.Message
	}
	return apiclient.Message(err)
}

// resolveScope picks the client a page reports on. Client users always see
// their own client; admins choose with ?client= and default to the first.
func (s *Server) resolveScope(r *http.Request) (*clientScope, error) {
	ws, _ := WorkspaceFrom(r.Context())
	user, ok := ws.Session.User()
	if !ok {
		return nil, apperrors.ErrNotAuthenticated
	}

	if !user.IsAdmin() {
		if user.ClientID == "" {
			return nil, apperrors.ErrForbidden
		}
		scope := &clientScope{ID: user.ClientID, Name: user.ClientID}
		res := fetch(r, query.Keys.Clients.Detail(user.ClientID), func(ctx context.Context) (*clients.Client, error) {
			return s.api.Clients.Get(ctx, user.ClientID)
		})
		if res.Err == nil && res.Data != nil {
			scope.Name = res.Data.Name
		}
		return scope, nil
	}

	res := fetch(r, query.Keys.Clients.List(), func(ctx context.Context) ([]clients.Client, error) {
		return s.api.Clients.List(ctx)
	})
	if res.Err != nil {
		return nil, res.Err
	}
	scope := &clientScope{Options: res.Data}
	if len(res.Data) == 0 {
		return scope, nil
	}

	selected := res.Data[0]
	if want := r.URL.Query().Get("client"); want != "" {
		if i := slices.IndexFunc(res.Data, func(c clients.Client) bool { return c.ID == want }); i >= 0 {
			selected = res.Data[i]
		}
	}
	scope.ID = selected.ID
	scope.Name = selected.Name
	return scope, nil
}

func invalidField(field, message string) error {
	return &api.ValidationError{Field: field, Message: message}
}
