package testbackend

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/vistara-dashboard/invitations"
	"github.com/jrsteele09/vistara-dashboard/users"
)

func (b *Backend) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status_text": "healthy"})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &in); err != nil {
		b.fail(w, r, http.StatusBadRequest, "bad_request", "Malformed body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[strings.ToLower(in.Email)]
	if !ok || acct.password != in.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid email or password"})
		return
	}
	if !acct.user.IsActive {
		b.fail(w, r, http.StatusForbidden, "inactive", "Account is deactivated")
		return
	}
	acct.user.LastLogin = b.now().UTC()
	b.ok(w, r, http.StatusOK, b.authResultLocked(acct.user))
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decode(r, &in); err != nil {
		b.fail(w, r, http.StatusBadRequest, "bad_request", "Malformed body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	email, ok := b.refresh[in.RefreshToken]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid refresh token"})
		return
	}
	delete(b.refresh, in.RefreshToken)
	b.ok(w, r, http.StatusOK, b.authResultLocked(b.accounts[email].user))
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request, u users.User) {
	b.ok(w, r, http.StatusOK, u)
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request, _ users.User) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.Revoke(raw)
	b.ok(w, r, http.StatusOK, nil)
}

func (b *Backend) handleValidateInvitation(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.inviteToken[token]
	if !ok {
		b.fail(w, r, http.StatusNotFound, "not_found", "Invitation not found")
		return
	}
	inv := b.invitations[id]
	out := invitations.Validation{
		Email:      inv.Email,
		Role:       inv.Role,
		ExpiryDate: inv.ExpiryDate,
	}
	if c, ok := b.clients[inv.ClientID]; ok {
		out.ClientName = c.Name
	}
	switch {
	case inv.Status != invitations.StatusPending:
		out.Message = "Invitation is " + string(inv.Status)
	case b.now().After(inv.ExpiryDate):
		out.Message = "Invitation has expired"
	default:
		out.Valid = true
	}
	b.ok(w, r, http.StatusOK, out)
}

func (b *Backend) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var in invitations.Accept
	if err := decode(r, &in); err != nil {
		b.fail(w, r, http.StatusBadRequest, "bad_request", "Malformed body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.inviteToken[in.Token]
	if !ok {
		b.fail(w, r, http.StatusNotFound, "not_found", "Invitation not found")
		return
	}
	inv := b.invitations[id]
	if inv.Status != invitations.StatusPending || b.now().After(inv.ExpiryDate) {
		b.fail(w, r, http.StatusBadRequest, "invitation_unusable", "Invitation is no longer valid")
		return
	}
	if _, exists := b.accounts[strings.ToLower(inv.Email)]; exists {
		b.fail(w, r, http.StatusConflict, "duplicate_email", "A user with this email already exists")
		return
	}

	u := users.User{
		ID:        "u-" + id,
		Email:     inv.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      inv.Role,
		ClientID:  inv.ClientID,
		IsActive:  true,
		LastLogin: b.now().UTC(),
	}
	b.accounts[strings.ToLower(u.Email)] = &account{user: u, password: in.Password}
	inv.Status = invitations.StatusAccepted
	b.ok(w, r, http.StatusCreated, b.authResultLocked(u))
}
