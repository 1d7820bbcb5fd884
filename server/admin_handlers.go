package server

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/vistara-dashboard/categories"
	"github.com/jrsteele09/vistara-dashboard/clients"
	"github.com/jrsteele09/vistara-dashboard/internal/utils"
	"github.com/jrsteele09/vistara-dashboard/invitations"
	"github.com/jrsteele09/vistara-dashboard/metrics"
	"github.com/jrsteele09/vistara-dashboard/query"
	"github.com/jrsteele09/vistara-dashboard/users"
	"github.com/jrsteele09/vistara-dashboard/workflows"
	"github.com/rs/zerolog/log"
)

// CLIENTS

type adminClientsView struct {
	Clients []clients.Client
}

func (s *Server) adminClientsPage(r *http.Request) (pageData, error) {
	res := fetch(r, query.Keys.Clients.List(), func(ctx context.Context) ([]clients.Client, error) {
		return s.api.Clients.List(ctx)
	})
	if res.Err != nil {
		return pageData{}, res.Err
	}
	return pageData{
		Title:  "Clients",
		Active: "admin-clients",
		Data:   adminClientsView{Clients: res.Data},
	}, nil
}

// AdminClientsHandler lists every client with its engine connection summary.
func (s *Server) AdminClientsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := s.adminClientsPage(r)
		if err != nil {
			s.pageFailed(w, r, err, "Clients")
			return
		}
		s.renderPage(w, r, http.StatusOK, "admin_clients.html", data)
	}
}

// adminActionFailed reloads an admin page and shows err above the submitted form.
func (s *Server) adminActionFailed(w http.ResponseWriter, r *http.Request, err error, page string, load func(*http.Request) (pageData, error), form map[string]string) {
	data, loadErr := load(r)
	if loadErr != nil {
		s.pageFailed(w, r, loadErr, "Admin")
		return
	}
	data.Form = form
	s.actionFailed(w, r, err, page, data)
}

func (s *Server) AdminCreateClientHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		in := clients.Create{
			Name:   strings.TrimSpace(r.FormValue("name")),
			APIURL: strings.TrimSpace(r.FormValue("api_url")),
			APIKey: strings.TrimSpace(r.FormValue("api_key")),
		}
		created, err := mutate(r, func(ctx context.Context) (*clients.Client, error) {
			return s.api.Clients.Create(ctx, in)
		}, query.Keys.Clients.All())
		if err != nil {
			s.adminActionFailed(w, r, err, "admin_clients.html", s.adminClientsPage,
				map[string]string{"name": in.Name, "api_url": in.APIURL})
			return
		}
		if created == nil {
			created = &clients.Client{Name: in.Name}
		}
		log.Info().Str("client_id", created.ID).Msg("client created")
		redirectWithNotice(w, r, RouteAdminClients, "Client "+created.Name+" created")
	}
}

// AdminUpdateClientHandler renames a client and, when an API key is given,
// replaces its engine credentials.
func (s *Server) AdminUpdateClientHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		id := r.PathValue("id")
		name := strings.TrimSpace(r.FormValue("name"))
		apiURL := strings.TrimSpace(r.FormValue("api_url"))
		apiKey := strings.TrimSpace(r.FormValue("api_key"))

		in := clients.Update{}
		if name != "" {
			in.Name = &name
		}
		if r.Form.Has("api_url") && apiKey == "" {
			in.APIURL = &apiURL
		}

		_, err := mutate(r, func(ctx context.Context) (*clients.Client, error) {
			c, err := s.api.Clients.Update(ctx, id, in)
			if err != nil || apiKey == "" {
				return c, err
			}
			return s.api.Clients.SetAPIKey(ctx, id, apiURL, apiKey)
		}, query.Keys.Clients.All(), query.Keys.Clients.One(id))
		if err != nil {
			s.adminActionFailed(w, r, err, "admin_clients.html", s.adminClientsPage,
				map[string]string{"edit_id": id, "name": name, "api_url": apiURL})
			return
		}
		redirectWithNotice(w, r, RouteAdminClients, "Client saved")
	}
}

func (s *Server) AdminDeleteClientHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		_, err := mutate(r, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.Clients.Delete(ctx, id)
		},
			query.Keys.Clients.All(),
			query.Keys.Clients.One(id),
			query.Keys.Workflows.Client(id),
			query.Keys.Metrics.Client(id),
			query.Keys.Users.All(),
		)
		if err != nil {
			s.adminActionFailed(w, r, err, "admin_clients.html", s.adminClientsPage, nil)
			return
		}
		log.Info().Str("client_id", id).Msg("client deleted")
		redirectWithNotice(w, r, RouteAdminClients, "Client deleted")
	}
}

type clientStatusView struct {
	Client *clients.Client
	Status *clients.ConfigStatus
}

// AdminClientStatusHandler checks the client's engine connection. ?refresh=1
// bypasses the cached result.
func (s *Server) AdminClientStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		client := fetch(r, query.Keys.Clients.Detail(id), func(ctx context.Context) (*clients.Client, error) {
			return s.api.Clients.Get(ctx, id)
		})
		if client.Err != nil {
			s.pageFailed(w, r, client.Err, "Client status")
			return
		}

		statusFetch := func(ctx context.Context) (*clients.ConfigStatus, error) {
			return s.api.Clients.ConfigStatus(ctx, id)
		}
		var status query.Result[*clients.ConfigStatus]
		if r.URL.Query().Get("refresh") == "1" {
			ws, _ := WorkspaceFrom(r.Context())
			status = query.Refetch(r.Context(), ws.Cache, query.Keys.Clients.ConfigStatus(id), statusFetch)
		} else {
			status = fetch(r, query.Keys.Clients.ConfigStatus(id), statusFetch)
		}
		if status.Err != nil {
			s.pageFailed(w, r, status.Err, "Client status")
			return
		}

		s.renderPage(w, r, http.StatusOK, "client_status.html", pageData{
			Title:  client.Data.Name,
			Active: "admin-clients",
			Data:   clientStatusView{Client: client.Data, Status: status.Data},
		})
	}
}

// USERS AND INVITATIONS

type adminUsersView struct {
	Users       []users.User
	Invitations []invitations.Invitation
	Clients     []clients.Client
	Filter      users.Filter
	Status      invitations.Status
	Statuses    []invitations.Status
	Roles       []users.Role
}

func (s *Server) adminUsersPage(r *http.Request) (pageData, error) {
	q := r.URL.Query()
	view := adminUsersView{
		Filter: users.Filter{
			Role:     users.Role(q.Get("role")),
			ClientID: q.Get("client"),
			Search:   strings.TrimSpace(q.Get("q")),
		},
		Status:   invitations.Status(utils.FirstNonEmpty(q.Get("status"), string(invitations.StatusPending))),
		Roles:    []users.Role{users.RoleAdmin, users.RoleClient},
		Statuses: []invitations.Status{
			invitations.StatusPending, invitations.StatusAccepted,
			invitations.StatusExpired, invitations.StatusRevoked,
		},
	}

	list := fetch(r, query.Keys.Users.List(view.Filter), func(ctx context.Context) ([]users.User, error) {
		return s.api.Users.List(ctx, view.Filter)
	})
	if list.Err != nil {
		return pageData{}, list.Err
	}
	view.Users = list.Data

	invFilter := invitations.Filter{Status: view.Status, ClientID: view.Filter.ClientID}
	invs := fetch(r, query.Keys.Invitations.List(string(invFilter.Status), invFilter.ClientID), func(ctx context.Context) ([]invitations.Invitation, error) {
		return s.api.Invitations.List(ctx, invFilter)
	})
	if invs.Err != nil {
		return pageData{}, invs.Err
	}
	view.Invitations = invs.Data

	cl := fetch(r, query.Keys.Clients.List(), func(ctx context.Context) ([]clients.Client, error) {
		return s.api.Clients.List(ctx)
	})
	view.Clients = cl.Data

	return pageData{Title: "Users", Active: "admin-users", Data: view}, nil
}

// AdminUsersHandler lists users and invitations, with the invite form.
func (s *Server) AdminUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := s.adminUsersPage(r)
		if err != nil {
			s.pageFailed(w, r, err, "Users")
			return
		}
		s.renderPage(w, r, http.StatusOK, "admin_users.html", data)
	}
}

// AdminUpdateUserHandler changes a user's role, client or active flag.
func (s *Server) AdminUpdateUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		id := r.PathValue("id")

		var in users.Update
		if role := r.FormValue("role"); role != "" {
			in.Role = utils.Ptr(users.Role(role))
		}
		if r.Form.Has("client_id") {
			in.ClientID = utils.Ptr(r.FormValue("client_id"))
		}
		if r.Form.Has("is_active") {
			active, err := strconv.ParseBool(r.FormValue("is_active"))
			if err != nil {
				s.adminActionFailed(w, r, invalidField("is_active", "must be true or false"), "admin_users.html", s.adminUsersPage, nil)
				return
			}
			in.IsActive = &active
		}

		ws, _ := WorkspaceFrom(r.Context())
		if me, ok := ws.Session.User(); ok && me.ID == id && in.IsActive != nil && !*in.IsActive {
			s.adminActionFailed(w, r, invalidField("is_active", "cannot be turned off for your own account"), "admin_users.html", s.adminUsersPage, nil)
			return
		}

		_, err := mutate(r, func(ctx context.Context) (*users.User, error) {
			return s.api.Users.Update(ctx, id, in)
		}, query.Keys.Users.All())
		if err != nil {
			s.adminActionFailed(w, r, err, "admin_users.html", s.adminUsersPage, map[string]string{"edit_id": id})
			return
		}
		redirectWithNotice(w, r, RouteAdminUsers, "User saved")
	}
}

func (s *Server) AdminDeleteUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		ws, _ := WorkspaceFrom(r.Context())
		if me, ok := ws.Session.User(); ok && me.ID == id {
			s.adminActionFailed(w, r, invalidField("user", "cannot delete your own account"), "admin_users.html", s.adminUsersPage, nil)
			return
		}
		_, err := mutate(r, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.Users.Delete(ctx, id)
		}, query.Keys.Users.All())
		if err != nil {
			s.adminActionFailed(w, r, err, "admin_users.html", s.adminUsersPage, nil)
			return
		}
		log.Info().Str("user_id", id).Msg("user deleted")
		redirectWithNotice(w, r, RouteAdminUsers, "User deleted")
	}
}

// AdminCreateInvitationHandler sends an invitation. Client users must be
// bound to a client.
func (s *Server) AdminCreateInvitationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		in := invitations.Create{
			Email:    strings.TrimSpace(r.FormValue("email")),
			Role:     users.Role(r.FormValue("role")),
			ClientID: r.FormValue("client_id"),
		}
		form := map[string]string{"email": in.Email, "role": string(in.Role), "client_id": in.ClientID}

		var err error
		if in.Role == users.RoleClient && in.ClientID == "" {
			err = invalidField("client_id", "is required for client users")
		} else {
			_, err = mutate(r, func(ctx context.Context) (*invitations.Invitation, error) {
				return s.api.Invitations.Create(ctx, in)
			}, query.Keys.Invitations.All())
		}
		if err != nil {
			s.adminActionFailed(w, r, err, "admin_users.html", s.adminUsersPage, form)
			return
		}
		redirectWithNotice(w, r, RouteAdminUsers, "Invitation sent to "+in.Email)
	}
}

func (s *Server) AdminResendInvitationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		_, err := mutate(r, func(ctx context.Context) (*invitations.Invitation, error) {
			return s.api.Invitations.Resend(ctx, id)
		}, query.Keys.Invitations.All())
		if err != nil {
			s.adminActionFailed(w, r, err, "admin_users.html", s.adminUsersPage, nil)
			return
		}
		redirectWithNotice(w, r, RouteAdminUsers, "Invitation resent")
	}
}

func (s *Server) AdminRevokeInvitationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		_, err := mutate(r, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.Invitations.Revoke(ctx, id)
		}, query.Keys.Invitations.All())
		if err != nil {
			s.adminActionFailed(w, r, err, "admin_users.html", s.adminUsersPage, nil)
			return
		}
		redirectWithNotice(w, r, RouteAdminUsers, "Invitation revoked")
	}
}

// AdminInvitationLinkHandler shows a copyable acceptance link.
func (s *Server) AdminInvitationLinkHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		res := fetch(r, query.Keys.Invitations.Link(id), func(ctx context.Context) (*invitations.Link, error) {
			return s.api.Invitations.Link(ctx, id)
		})
		if res.Err != nil {
			s.pageFailed(w, r, res.Err, "Invitation link")
			return
		}
		s.renderPage(w, r, http.StatusOK, "invitation_link.html", pageData{
			Title:  "Invitation link",
			Active: "admin-users",
			Data:   res.Data,
		})
	}
}

// CATEGORIES

func (s *Server) adminCategoriesPage(r *http.Request) (pageData, error) {
	res := fetch(r, query.Keys.Categories.List(), func(ctx context.Context) ([]categories.Category, error) {
		return s.api.Categories.List(ctx)
	})
	if res.Err != nil {
		return pageData{}, res.Err
	}
	return pageData{Title: "Categories", Active: "admin-categories", Data: res.Data}, nil
}

func (s *Server) AdminCategoriesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := s.adminCategoriesPage(r)
		if err != nil {
			s.pageFailed(w, r, err, "Categories")
			return
		}
		s.renderPage(w, r, http.StatusOK, "admin_categories.html", data)
	}
}

func categoryInputFrom(r *http.Request) categories.Input {
	return categories.Input{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Color:       strings.TrimSpace(r.FormValue("color")),
	}
}

func (s *Server) AdminCreateCategoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		in := categoryInputFrom(r)
		_, err := mutate(r, func(ctx context.Context) (*categories.Category, error) {
			return s.api.Categories.Create(ctx, in)
		}, query.Keys.Categories.All())
		if err != nil {
			s.adminActionFailed(w, r, err, "admin_categories.html", s.adminCategoriesPage,
				map[string]string{"name": in.Name, "description": in.Description, "color": in.Color})
			return
		}
		redirectWithNotice(w, r, RouteAdminCategories, "Category "+in.Name+" created")
	}
}

func (s *Server) AdminUpdateCategoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		id := r.PathValue("id")
		in := categoryInputFrom(r)
		_, err := mutate(r, func(ctx context.Context) (*categories.Category, error) {
			return s.api.Categories.Update(ctx, id, in)
		}, query.Keys.Categories.All())
		if err != nil {
			s.adminActionFailed(w, r, err, "admin_categories.html", s.adminCategoriesPage,
				map[string]string{"edit_id": id, "name": in.Name, "description": in.Description, "color": in.Color})
			return
		}
		redirectWithNotice(w, r, RouteAdminCategories, "Category saved")
	}
}

func (s *Server) AdminDeleteCategoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		_, err := mutate(r, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.Categories.Delete(ctx, id)
		}, query.Keys.Categories.All())
		if err != nil {
			s.adminActionFailed(w, r, err, "admin_categories.html", s.adminCategoriesPage, nil)
			return
		}
		redirectWithNotice(w, r, RouteAdminCategories, "Category deleted")
	}
}

// WORKFLOWS AND SYNC

type adminWorkflowsView struct {
	Registered []workflows.Workflow
	Engine     []workflows.EngineWorkflow
	EngineErr  string
	Categories []categories.Category
}

func (s *Server) adminWorkflowsPage(r *http.Request) (pageData, error) {
	scope, err := s.resolveScope(r)
	if err != nil {
		return pageData{}, err
	}
	data := pageData{Title: "Manage workflows", Active: "admin-workflows", Scope: scope}
	view := adminWorkflowsView{}
	if scope.ID != "" {
		cid := scope.ID
		list := fetch(r, query.Keys.Workflows.List(cid, workflows.Filter{}), func(ctx context.Context) ([]workflows.Workflow, error) {
			return s.api.Workflows.List(ctx, cid, workflows.Filter{})
		})
		if list.Err != nil {
			return pageData{}, list.Err
		}
		view.Registered = list.Data

		engine := fetch(r, query.Keys.Workflows.Engine(cid), func(ctx context.Context) ([]workflows.EngineWorkflow, error) {
			return s.api.Workflows.ListEngineWorkflows(ctx, cid)
		})
		view.Engine, view.EngineErr = unregistered(engine.Data, list.Data), errText(engine.Err)
	}
	view.Categories, _ = s.categories(r)
	data.Data = view
	return data, nil
}

// unregistered drops engine workflows that already have a dashboard record.
func unregistered(engine []workflows.EngineWorkflow, registered []workflows.Workflow) []workflows.EngineWorkflow {
	known := make(map[string]struct{}, len(registered))
	for _, w := range registered {
		known[w.EngineWorkflowID] = struct{}{}
	}
	out := make([]workflows.EngineWorkflow, 0, len(engine))
	for _, e := range engine {
		if _, ok := known[e.ID]; !ok {
			out = append(out, e)
		}
	}
	return out
}

// AdminWorkflowsHandler shows registered and importable workflows of a client.
func (s *Server) AdminWorkflowsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := s.adminWorkflowsPage(r)
		if err != nil {
			s.pageFailed(w, r, err, "Manage workflows")
			return
		}
		s.renderPage(w, r, http.StatusOK, "admin_workflows.html", data)
	}
}

func adminWorkflowsURL(cid string) string {
	return RouteAdminWorkflows + "?client=" + url.QueryEscape(cid)
}

// AdminImportWorkflowHandler registers an engine workflow with the dashboard.
func (s *Server) AdminImportWorkflowHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		cid := r.FormValue("client_id")
		in := workflows.Create{
			EngineWorkflowID: r.FormValue("engine_workflow_id"),
			DisplayName:      strings.TrimSpace(r.FormValue("display_name")),
			Description:      strings.TrimSpace(r.FormValue("description")),
			CategoryID:       r.FormValue("category_id"),
		}
		var err error
		if raw := strings.TrimSpace(r.FormValue("time_saved_minutes")); raw != "" {
			minutes, perr := strconv.ParseFloat(raw, 64)
			if perr != nil || minutes < 0 {
				err = invalidField("time_saved_minutes", "must be a positive number of minutes")
			}
			in.TimeSavedPerExecutionMs = int64(minutes * 60_000)
		}
		if err == nil {
			_, err = mutate(r, func(ctx context.Context) (*workflows.Workflow, error) {
				return s.api.Workflows.Create(ctx, cid, in)
			}, query.Keys.Workflows.Client(cid))
		}
		if err != nil {
			s.adminActionFailed(w, r, err, "admin_workflows.html", s.adminWorkflowsPage,
				map[string]string{"engine_workflow_id": in.EngineWorkflowID, "display_name": in.DisplayName})
			return
		}
		redirectWithNotice(w, r, adminWorkflowsURL(cid), "Workflow imported")
	}
}

func (s *Server) AdminDeleteWorkflowHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		cid, id := r.FormValue("client_id"), r.PathValue("id")
		_, err := mutate(r, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.Workflows.Delete(ctx, cid, id)
		}, query.Keys.Workflows.Client(cid))
		if err != nil {
			s.adminActionFailed(w, r, err, "admin_workflows.html", s.adminWorkflowsPage, nil)
			return
		}
		redirectWithNotice(w, r, adminWorkflowsURL(cid), "Workflow removed")
	}
}

// AdminWorkflowSyncHandler pulls the workflow list from the engine.
func (s *Server) AdminWorkflowSyncHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		cid := r.FormValue("client_id")
		res, err := mutate(r, func(ctx context.Context) (*metrics.SyncResult, error) {
			return s.api.Workflows.Sync(ctx, cid)
		}, query.Keys.Workflows.Client(cid))
		if err != nil {
			s.adminActionFailed(w, r, err, "admin_workflows.html", s.adminWorkflowsPage, nil)
			return
		}
		redirectWithNotice(w, r, adminWorkflowsURL(cid), syncNotice("workflows", res))
	}
}

// AdminMetricsSyncHandler asks the backend to pull fresh executions for a
// client and drops every cached metric of that client.
func (s *Server) AdminMetricsSyncHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		cid := r.FormValue("client_id")
		back := safeNext(r.FormValue("next"))
		if cid == "" {
			redirectWithError(w, r, back, "Choose a client to sync")
			return
		}
		res, err := mutate(r, func(ctx context.Context) (*metrics.SyncResult, error) {
			return s.api.Metrics.Sync(ctx, cid)
		}, query.Keys.Metrics.Client(cid))
		if err != nil {
			if isAuthFailure(err) {
				loginRedirect(w, r)
				return
			}
			redirectWithError(w, r, back, userMessage(err))
			return
		}
		event := log.Info().Str("client_id", cid)
		if res != nil {
			event = event.Int("synced", res.Synced)
		}
		event.Msg("metrics synced")
		redirectWithNotice(w, r, back, syncNotice("executions", res))
	}
}

func syncNotice(what string, res *metrics.SyncResult) string {
	if res == nil {
		return "Sync started"
	}
	if res.Message != "" {
		return res.Message
	}
	return "Synced " + strconv.Itoa(res.Synced) + " " + what
}
