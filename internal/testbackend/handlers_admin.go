package testbackend

import (
	"cmp"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jrsteele09/vistara-dashboard/categories"
	"github.com/jrsteele09/vistara-dashboard/clients"
	"github.com/jrsteele09/vistara-dashboard/invitations"
	"github.com/jrsteele09/vistara-dashboard/users"
)

func (b *Backend) handleListInvitations(w http.ResponseWriter, r *http.Request, _ users.User) {
	q := r.URL.Query()

	b.mu.Lock()
	defer b.mu.Unlock()
	out := []invitations.Invitation{}
	for _, inv := range b.invitations {
		if s := q.Get("status"); s != "" && string(inv.Status) != s {
			continue
		}
		if c := q.Get("client_id"); c != "" && inv.ClientID != c {
			continue
		}
		out = append(out, *inv)
	}
	slices.SortFunc(out, func(a, b invitations.Invitation) int { return b.CreatedAt.Compare(a.CreatedAt) })
	b.ok(w, r, http.StatusOK, out)
}

func (b *Backend) handleCreateInvitation(w http.ResponseWriter, r *http.Request, u users.User) {
	var in invitations.Create
	if err := decode(r, &in); err != nil || in.Email == "" {
		b.fail(w, r, http.StatusUnprocessableEntity, "validation_error", "Email is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, inv := range b.invitations {
		if strings.EqualFold(inv.Email, in.Email) && inv.Status == invitations.StatusPending {
			b.fail(w, r, http.StatusConflict, "duplicate_invitation", "A pending invitation already exists for this email")
			return
		}
	}
	inv, _ := b.addInvitationLocked(invitations.Invitation{
		Email:     in.Email,
		Role:      in.Role,
		ClientID:  in.ClientID,
		InvitedBy: u.Email,
	})
	b.ok(w, r, http.StatusCreated, inv)
}

func (b *Backend) handleResendInvitation(w http.ResponseWriter, r *http.Request, _ users.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	inv, ok := b.invitations[r.PathValue("id")]
	if !ok {
		b.fail(w, r, http.StatusNotFound, "not_found", "Invitation not found")
		return
	}
	if inv.Status == invitations.StatusAccepted || inv.Status == invitations.StatusRevoked {
		b.fail(w, r, http.StatusBadRequest, "invitation_closed", "Invitation can no longer be resent")
		return
	}
	inv.Status = invitations.StatusPending
	inv.ExpiryDate = b.now().UTC().Add(7 * 24 * time.Hour)
	b.ok(w, r, http.StatusOK, *inv)
}

func (b *Backend) handleInvitationLink(w http.ResponseWriter, r *http.Request, _ users.User) {
	id := r.PathValue("id")

	b.mu.Lock()
	defer b.mu.Unlock()
	inv, ok := b.invitations[id]
	if !ok {
		b.fail(w, r, http.StatusNotFound, "not_found", "Invitation not found")
		return
	}
	for token, invID := range b.inviteToken {
		if invID == id {
			b.ok(w, r, http.StatusOK, invitations.Link{
				URL:       "https://dashboard.test/invitations/accept?token=" + token,
				ExpiresAt: inv.ExpiryDate,
			})
			return
		}
	}
	b.fail(w, r, http.StatusNotFound, "not_found", "Invitation link not found")
}

func (b *Backend) handleRevokeInvitation(w http.ResponseWriter, r *http.Request, _ users.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	inv, ok := b.invitations[r.PathValue("id")]
	if !ok {
		b.fail(w, r, http.StatusNotFound, "not_found", "Invitation not found")
		return
	}
	inv.Status = invitations.StatusRevoked
	b.ok(w, r, http.StatusOK, nil)
}

func (b *Backend) handleListClients(w http.ResponseWriter, r *http.Request, _ users.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]clients.Client, 0, len(b.clients))
	for _, c := range b.clients {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b clients.Client) int { return cmp.Compare(a.Name, b.Name) })
	b.ok(w, r, http.StatusOK, out)
}

func (b *Backend) handleCreateClient(w http.ResponseWriter, r *http.Request, _ users.User) {
	var in clients.Create
	if err := decode(r, &in); err != nil || strings.TrimSpace(in.Name) == "" {
		b.fail(w, r, http.StatusUnprocessableEntity, "validation_error", "Name is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.clients {
		if strings.EqualFold(c.Name, in.Name) {
			b.fail(w, r, http.StatusOK, "duplicate_name", "Client name already exists")
			return
		}
	}
	now := b.now().UTC()
	c := &clients.Client{
		ID:        uuid.NewString(),
		Name:      in.Name,
		APIURL:    in.APIURL,
		HasAPIKey: in.APIKey != "",
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.clients[c.ID] = c
	b.ok(w, r, http.StatusCreated, *c)
}

func (b *Backend) handleGetClient(w http.ResponseWriter, r *http.Request, u users.User) {
	id := r.PathValue("id")
	if !b.canAccessClient(w, r, u, id) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.clients[id]
	if !ok {
		b.fail(w, r, http.StatusNotFound, "not_found", "Client not found")
		return
	}
	b.ok(w, r, http.StatusOK, *c)
}

func (b *Backend) handleUpdateClient(w http.ResponseWriter, r *http.Request, _ users.User) {
	var in clients.Update
	if err := decode(r, &in); err != nil {
		b.fail(w, r, http.StatusBadRequest, "bad_request", "Malformed body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.clients[r.PathValue("id")]
	if !ok {
		b.fail(w, r, http.StatusNotFound, "not_found", "Client not found")
		return
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.APIURL != nil {
		c.APIURL = *in.APIURL
	}
	c.UpdatedAt = b.now().UTC()
	b.ok(w, r, http.StatusOK, *c)
}

func (b *Backend) handleDeleteClient(w http.ResponseWriter, r *http.Request, _ users.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := b.clients[id]; !ok {
		b.fail(w, r, http.StatusNotFound, "not_found", "Client not found")
		return
	}
	delete(b.clients, id)
	b.ok(w, r, http.StatusOK, nil)
}

func (b *Backend) handleConfigStatus(w http.ResponseWriter, r *http.Request, u users.User) {
	id := r.PathValue("id")
	if !b.canAccessClient(w, r, u, id) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.clients[id]
	if !ok {
		b.fail(w, r, http.StatusNotFound, "not_found", "Client not found")
		return
	}
	status := clients.ConfigStatus{State: clients.ConfigHealthy, CheckedAt: b.now().UTC()}
	if !c.HasAPIKey {
		status.State = clients.ConfigMissingAPIKey
		status.Message = "No workflow engine API key configured"
	} else {
		status.WorkflowCount = len(b.engine[id])
	}
	b.ok(w, r, http.StatusOK, status)
}

func (b *Backend) handleSetAPIKey(w http.ResponseWriter, r *http.Request, _ users.User) {
	var in clients.APIKeyUpdate
	if err := decode(r, &in); err != nil || in.APIKey == "" {
		b.fail(w, r, http.StatusUnprocessableEntity, "validation_error", "API key is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.clients[r.PathValue("id")]
	if !ok {
		b.fail(w, r, http.StatusNotFound, "not_found", "Client not found")
		return
	}
	c.HasAPIKey = true
	c.APIURL = in.APIURL
	c.UpdatedAt = b.now().UTC()
	b.ok(w, r, http.StatusOK, *c)
}

func (b *Backend) handleListUsers(w http.ResponseWriter, r *http.Request, _ users.User) {
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))

	b.mu.Lock()
	defer b.mu.Unlock()
	out := []users.User{}
	for _, a := range b.accounts {
		u := a.user
		if role := q.Get("role"); role != "" && string(u.Role) != role {
			continue
		}
		if c := q.Get("client_id"); c != "" && u.ClientID != c {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Email+" "+u.FirstName+" "+u.LastName), search) {
			continue
		}
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b users.User) int { return cmp.Compare(a.Email, b.Email) })
	b.ok(w, r, http.StatusOK, out)
}

func (b *Backend) findAccountLocked(id string) *account {
	for _, a := range b.accounts {
		if a.user.ID == id {
			return a
		}
	}
	return nil
}

func (b *Backend) handleGetUser(w http.ResponseWriter, r *http.Request, _ users.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.findAccountLocked(r.PathValue("id"))
	if a == nil {
		b.fail(w, r, http.StatusNotFound, "not_found", "User not found")
		return
	}
	b.ok(w, r, http.StatusOK, a.user)
}

func (b *Backend) handleUpdateUser(w http.ResponseWriter, r *http.Request, _ users.User) {
	var in users.Update
	if err := decode(r, &in); err != nil {
		b.fail(w, r, http.StatusBadRequest, "bad_request", "Malformed body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.findAccountLocked(r.PathValue("id"))
	if a == nil {
		b.fail(w, r, http.StatusNotFound, "not_found", "User not found")
		return
	}
	if in.Role != nil {
		a.user.Role = *in.Role
	}
	if in.ClientID != nil {
		a.user.ClientID = *in.ClientID
	}
	if in.IsActive != nil {
		a.user.IsActive = *in.IsActive
	}
	b.ok(w, r, http.StatusOK, a.user)
}

func (b *Backend) handleDeleteUser(w http.ResponseWriter, r *http.Request, _ users.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.findAccountLocked(r.PathValue("id"))
	if a == nil {
		b.fail(w, r, http.StatusNotFound, "not_found", "User not found")
		return
	}
	delete(b.accounts, strings.ToLower(a.user.Email))
	b.ok(w, r, http.StatusOK, nil)
}

func (b *Backend) handleListCategories(w http.ResponseWriter, r *http.Request, _ users.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]categories.Category, 0, len(b.categories))
	for _, c := range b.categories {
		cat := *c
		cat.WorkflowCount = 0
		for _, wf := range b.workflows {
			if wf.CategoryID == cat.ID {
				cat.WorkflowCount++
			}
		}
		out = append(out, cat)
	}
	slices.SortFunc(out, func(a, b categories.Category) int { return cmp.Compare(a.Name, b.Name) })
	b.ok(w, r, http.StatusOK, out)
}

func (b *Backend) handleCreateCategory(w http.ResponseWriter, r *http.Request, _ users.User) {
	var in categories.Input
	if err := decode(r, &in); err != nil || strings.TrimSpace(in.Name) == "" {
		b.fail(w, r, http.StatusUnprocessableEntity, "validation_error", "Name is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	c := &categories.Category{ID: uuid.NewString(), Name: in.Name, Description: in.Description, Color: in.Color}
	b.categories[c.ID] = c
	b.ok(w, r, http.StatusCreated, *c)
}

func (b *Backend) handleUpdateCategory(w http.ResponseWriter, r *http.Request, _ users.User) {
	var in categories.Input
	if err := decode(r, &in); err != nil {
		b.fail(w, r, http.StatusBadRequest, "bad_request", "Malformed body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.categories[r.PathValue("id")]
	if !ok {
		b.fail(w, r, http.StatusNotFound, "not_found", "Category not found")
		return
	}
	c.Name, c.Description, c.Color = in.Name, in.Description, in.Color
	b.ok(w, r, http.StatusOK, *c)
}

func (b *Backend) handleDeleteCategory(w http.ResponseWriter, r *http.Request, _ users.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := b.categories[id]; !ok {
		b.fail(w, r, http.StatusNotFound, "not_found", "Category not found")
		return
	}
	delete(b.categories, id)
	b.ok(w, r, http.StatusOK, nil)
}
