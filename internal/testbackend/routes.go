package testbackend

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jrsteele09/vistara-dashboard/users"
)

type authedHandler func(w http.ResponseWriter, r *http.Request, u users.User)

func (b *Backend) routes() http.Handler {
	mux := http.NewServeMux()
	p := func(pattern string) string {
		method, path, _ := strings.Cut(pattern, " ")
		return method + " " + apiPrefix + path
	}

	mux.HandleFunc(p("GET /health"), b.handleHealth)

	mux.HandleFunc(p("POST /auth/login"), b.handleLogin)
	mux.HandleFunc(p("POST /auth/refresh"), b.handleRefresh)
	mux.HandleFunc(p("GET /auth/me"), b.authed(b.handleMe))
	mux.HandleFunc(p("POST /auth/logout"), b.authed(b.handleLogout))

	mux.HandleFunc(p("GET /invitations/validate"), b.handleValidateInvitation)
	mux.HandleFunc(p("POST /invitations/accept"), b.handleAcceptInvitation)
	mux.HandleFunc(p("GET /invitations/{$}"), b.admin(b.handleListInvitations))
	mux.HandleFunc(p("POST /invitations/{$}"), b.admin(b.handleCreateInvitation))
	mux.HandleFunc(p("POST /invitations/{id}/resend"), b.admin(b.handleResendInvitation))
	mux.HandleFunc(p("GET /invitations/{id}/link"), b.admin(b.handleInvitationLink))
	mux.HandleFunc(p("DELETE /invitations/{id}"), b.admin(b.handleRevokeInvitation))

	mux.HandleFunc(p("GET /clients/{$}"), b.admin(b.handleListClients))
	mux.HandleFunc(p("POST /clients/{$}"), b.admin(b.handleCreateClient))
	mux.HandleFunc(p("GET /clients/{id}"), b.authed(b.handleGetClient))
	mux.HandleFunc(p("PUT /clients/{id}"), b.admin(b.handleUpdateClient))
	mux.HandleFunc(p("DELETE /clients/{id}"), b.admin(b.handleDeleteClient))
	mux.HandleFunc(p("GET /clients/{id}/config-status"), b.authed(b.handleConfigStatus))
	mux.HandleFunc(p("PUT /clients/{id}/api-key"), b.admin(b.handleSetAPIKey))

	mux.HandleFunc(p("GET /users/{$}"), b.admin(b.handleListUsers))
	mux.HandleFunc(p("GET /users/{id}"), b.admin(b.handleGetUser))
	mux.HandleFunc(p("PUT /users/{id}"), b.admin(b.handleUpdateUser))
	mux.HandleFunc(p("DELETE /users/{id}"), b.admin(b.handleDeleteUser))

	mux.HandleFunc(p("GET /clients/{cid}/workflows/{$}"), b.authed(b.handleListWorkflows))
	mux.HandleFunc(p("POST /clients/{cid}/workflows/{$}"), b.admin(b.handleCreateWorkflow))
	mux.HandleFunc(p("POST /clients/{cid}/workflows/sync"), b.authed(b.handleSyncWorkflows))
	mux.HandleFunc(p("GET /clients/{cid}/workflows/{id}"), b.authed(b.handleGetWorkflow))
	mux.HandleFunc(p("PUT /clients/{cid}/workflows/{id}"), b.authed(b.handleUpdateWorkflow))
	mux.HandleFunc(p("DELETE /clients/{cid}/workflows/{id}"), b.admin(b.handleDeleteWorkflow))
	mux.HandleFunc(p("GET /clients/{cid}/engine-workflows"), b.authed(b.handleEngineWorkflows))

	mux.HandleFunc(p("GET /metrics/clients/{cid}/overview"), b.authed(b.handleOverview))
	mux.HandleFunc(p("GET /metrics/clients/{cid}/workflows"), b.authed(b.handleWorkflowMetrics))
	mux.HandleFunc(p("GET /metrics/clients/{cid}/executions"), b.authed(b.handleExecutions))
	mux.HandleFunc(p("GET /metrics/clients/{cid}/freshness"), b.authed(b.handleFreshness))
	mux.HandleFunc(p("POST /metrics/clients/{cid}/sync"), b.authed(b.handleMetricsSync))

	mux.HandleFunc(p("GET /categories/{$}"), b.authed(b.handleListCategories))
	mux.HandleFunc(p("POST /categories/{$}"), b.admin(b.handleCreateCategory))
	mux.HandleFunc(p("PUT /categories/{id}"), b.admin(b.handleUpdateCategory))
	mux.HandleFunc(p("DELETE /categories/{id}"), b.admin(b.handleDeleteCategory))

	mux.HandleFunc(p("GET /chatbots/{$}"), b.authed(b.handleListChatbots))
	mux.HandleFunc(p("GET /chatbots/{id}"), b.authed(b.handleGetChatbot))
	mux.HandleFunc(p("POST /chatbots/{id}/messages"), b.authed(b.handleSendMessage))

	mux.HandleFunc(p("GET /guides/{$}"), b.authed(b.handleListGuides))
	mux.HandleFunc(p("GET /guides/{slug}"), b.authed(b.handleGetGuide))

	// Collections without their trailing slash are redirected like the real
	// backend does.
	for _, collection := range []string{"/invitations", "/clients", "/users", "/clients/{cid}/workflows", "/categories", "/chatbots", "/guides"} {
		mux.HandleFunc(apiPrefix+collection, redirectToSlash)
	}

	return b.instrument(mux)
}

func redirectToSlash(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Path + "/"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	w.Header().Set("Location", target)
	w.WriteHeader(http.StatusTemporaryRedirect)
}

func (b *Backend) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		b.mu.Lock()
		b.calls[key]++
		var inj *injected
		if q := b.failures[key]; len(q) > 0 {
			inj = &q[0]
			b.failures[key] = q[1:]
		}
		omit := inj == nil && b.omitData[key] > 0
		if omit {
			b.omitData[key]--
		}
		b.mu.Unlock()

		if omit {
			r = withoutData(r)
		}

		if inj != nil {
			b.fail(w, r, inj.status, "injected", inj.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}

		b.mu.Lock()
		now := b.now
		revoked := b.revoked[raw]
		b.mu.Unlock()

		tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return b.secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(now),
		)
		if err != nil || revoked {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		claims, _ := tok.Claims.(jwt.MapClaims)
		email, _ := claims["email"].(string)

		b.mu.Lock()
		acct, found := b.accounts[strings.ToLower(email)]
		var u users.User
		if found {
			u = acct.user
		}
		b.mu.Unlock()
		if !found || !u.IsActive {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "User not found or inactive"})
			return
		}
		h(w, r, u)
	}
}

func (b *Backend) admin(h authedHandler) http.HandlerFunc {
	return b.authed(func(w http.ResponseWriter, r *http.Request, u users.User) {
		if !u.IsAdmin() {
			b.fail(w, r, http.StatusForbidden, "forbidden", "Admin access required")
			return
		}
		h(w, r, u)
	})
}

// canAccessClient enforces tenant isolation for client users.
func (b *Backend) canAccessClient(w http.ResponseWriter, r *http.Request, u users.User, clientID string) bool {
	if u.IsAdmin() || u.ClientID == clientID {
		return true
	}
	b.fail(w, r, http.StatusForbidden, "forbidden", "Access to this client is not allowed")
	return false
}
