package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/vistara-dashboard/api"
	"github.com/jrsteele09/vistara-dashboard/invitations"
	apperrors "github.com/jrsteele09/vistara-dashboard/internal/errors"
	"github.com/jrsteele09/vistara-dashboard/session"
	"github.com/rs/zerolog/log"
)

// LoginPageHandler displays the login page (GET /login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, _ := WorkspaceFrom(r.Context())
		next := r.URL.Query().Get("next")

		switch ws.Session.State() {
		case session.StateInitializing:
			s.renderLoading(w, r)
			return
		case session.StateAuthenticated:
			redirectSuccess(w, r, safeNext(next))
			return
		}

		s.renderPage(w, r, http.StatusOK, "login.html", pageData{
			Title: "Sign in",
			Form:  map[string]string{"email": r.URL.Query().Get("email"), "next": next},
		})
	}
}

// LoginSubmissionHandler processes the login form submission
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := strings.TrimSpace(r.FormValue("email"))
		next := r.FormValue("next")

		ws, _ := WorkspaceFrom(r.Context())
		user, err := ws.Session.Login(r.Context(), email, r.FormValue("password"))
		if err != nil {
			status := http.StatusUnauthorized
			switch {
			case errors.Is(err, apperrors.ErrInvalidInput):
				status = http.StatusUnprocessableEntity
			case errors.Is(err, apperrors.ErrLoginInProgress):
				status = http.StatusConflict
			case !errors.Is(err, apperrors.ErrUnauthorized):
				status = statusFor(err)
			}
			log.Info().Str("email", email).Int("status", status).Msg("login failed")
			s.renderPage(w, r, status, "login.html", pageData{
				Title: "Sign in",
				Error: userMessage(err),
				Form:  map[string]string{"email": email, "next": next},
			})
			return
		}

		log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user signed in")
		redirectSuccess(w, r, safeNext(next))
	}
}

// LogoutHandler revokes the token upstream, best effort, and forgets the session.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, _ := WorkspaceFrom(r.Context())
		if ws.Session.State() == session.StateAuthenticated {
			if err := s.api.Auth.Logout(r.Context()); err != nil {
				log.Warn().Err(err).Msg("backend logout failed")
			}
		}
		if err := ws.Session.Logout(r.Context()); err != nil {
			log.Err(err).Msg("failed to clear session")
		}
		ws.Cache.Clear()
		redirectWithNotice(w, r, RouteLogin, "You have been signed out")
	}
}

type acceptInvitationView struct {
	Token      string
	Validation *invitations.Validation
}

// AcceptInvitationPageHandler validates the invitation token and shows the
// account form.
func (s *Server) AcceptInvitationPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		view := acceptInvitationView{Token: token}
		data := pageData{Title: "Accept invitation", Form: map[string]string{}}

		validation, err := s.api.Auth.ValidateInvitation(r.Context(), token)
		switch {
		case err != nil:
			data.Error = userMessage(err)
		case !validation.Valid:
			data.Error = validation.Message
			if data.Error == "" {
				data.Error = "This invitation is no longer valid"
			}
		default:
			view.Validation = validation
		}
		data.Data = view

		status := http.StatusOK
		if data.Error != "" {
			status = statusFor(err)
			if err == nil {
				status = http.StatusGone
			}
		}
		s.renderPage(w, r, status, "accept_invitation.html", data)
	}
}

// AcceptInvitationHandler creates the account and signs the browser in.
func (s *Server) AcceptInvitationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		in := invitations.Accept{
			Token:     r.FormValue("token"),
			Password:  r.FormValue("password"),
			FirstName: strings.TrimSpace(r.FormValue("first_name")),
			LastName:  strings.TrimSpace(r.FormValue("last_name")),
		}
		data := pageData{
			Title: "Accept invitation",
			Form:  map[string]string{"first_name": in.FirstName, "last_name": in.LastName},
			Data: acceptInvitationView{
				Token:      in.Token,
				Validation: &invitations.Validation{Valid: true, Email: r.FormValue("email")},
			},
		}

		if in.Password != r.FormValue("confirm_password") {
			s.actionFailed(w, r, &api.ValidationError{Field: "confirm_password", Message: "does not match the password"}, "accept_invitation.html", data)
			return
		}

		res, err := s.api.Auth.AcceptInvitation(r.Context(), in)
		if err != nil {
			s.actionFailed(w, r, err, "accept_invitation.html", data)
			return
		}

		if res == nil {
			// The account exists but no session came back.
			redirectWithNotice(w, r, RouteLogin, "Your account is ready, please sign in")
			return
		}
		ws, _ := WorkspaceFrom(r.Context())
		if err := ws.Session.Establish(r.Context(), res); err != nil {
			log.Err(err).Msg("failed to establish session after accepting invitation")
			redirectWithNotice(w, r, RouteLogin, "Your account is ready, please sign in")
			return
		}
		log.Info().Str("user_id", res.User.ID).Msg("invitation accepted")
		redirectSuccess(w, r, RouteDashboard)
	}
}
