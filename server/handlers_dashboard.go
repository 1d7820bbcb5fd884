package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/jrsteele09/vistara-dashboard/categories"
	"github.com/jrsteele09/vistara-dashboard/internal/utils"
	"github.com/jrsteele09/vistara-dashboard/metrics"
	"github.com/jrsteele09/vistara-dashboard/query"
	"github.com/jrsteele09/vistara-dashboard/workflows"
	"github.com/rs/zerolog/log"
)

const defaultExecutionLimit = 50

type dashboardView struct {
	Period       metrics.Period
	Periods      []metrics.Period
	Overview     *metrics.Overview
	OverviewErr  string
	Freshness    *metrics.Freshness
	FreshnessErr string
	Top          []metrics.WorkflowMetric
	TopErr       string
}

// DashboardHandler shows the overview, data freshness and busiest workflows
// of the selected client. Each panel fails on its own.
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := s.resolveScope(r)
		if err != nil {
			s.pageFailed(w, r, err, "Dashboard")
			return
		}
		period := metrics.ParsePeriod(r.URL.Query().Get("period"))
		view := dashboardView{Period: period, Periods: metrics.Periods}

		if scope.ID != "" {
			cid := scope.ID
			overview := fetch(r, query.Keys.Metrics.Overview(cid, period), func(ctx context.Context) (*metrics.Overview, error) {
				return s.api.Metrics.Overview(ctx, cid, period)
			})
			freshness := fetch(r, query.Keys.Freshness.Client(cid), func(ctx context.Context) (*metrics.Freshness, error) {
				return s.api.Metrics.DataFreshness(ctx, cid)
			})
			top := fetch(r, query.Keys.Metrics.Workflows(cid, period), func(ctx context.Context) ([]metrics.WorkflowMetric, error) {
				return s.api.Metrics.WorkflowMetrics(ctx, cid, period)
			})

			for _, err := range []error{overview.Err, freshness.Err, top.Err} {
				if isAuthFailure(err) {
					loginRedirect(w, r)
					return
				}
			}

			view.Overview, view.OverviewErr = overview.Data, errText(overview.Err)
			view.Freshness, view.FreshnessErr = freshness.Data, errText(freshness.Err)
			view.TopErr = errText(top.Err)
			view.Top = slices.Clone(top.Data)
			slices.SortStableFunc(view.Top, func(a, b metrics.WorkflowMetric) int {
				return b.TotalExecutions - a.TotalExecutions
			})
			if len(view.Top) > 5 {
				view.Top = view.Top[:5]
			}
		}

		s.renderPage(w, r, http.StatusOK, "dashboard.html", pageData{
			Title:  "Dashboard",
			Active: "dashboard",
			Scope:  scope,
			Data:   view,
		})
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return userMessage(err)
}

type workflowsView struct {
	Rows       []workflows.Workflow
	Total      int
	Filter     workflows.Filter
	Sort       workflows.SortField
	Desc       bool
	Categories []categories.Category
	CategoryOf map[string]categories.Category
}

func workflowFilterFrom(q url.Values) workflows.Filter {
	f := workflows.Filter{
		CategoryID: q.Get("category"),
		Search:     strings.TrimSpace(q.Get("q")),
	}
	switch workflows.Status(q.Get("status")) {
	case workflows.StatusActive:
		f.Status = workflows.StatusActive
	case workflows.StatusInactive:
		f.Status = workflows.StatusInactive
	}
	return f
}

// WorkflowsHandler lists the client's workflows with filtering and sorting.
func (s *Server) WorkflowsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := s.resolveScope(r)
		if err != nil {
			s.pageFailed(w, r, err, "Workflows")
			return
		}
		q := r.URL.Query()
		view := workflowsView{
			Filter: workflowFilterFrom(q),
			Sort:   workflows.SortField(utils.FirstNonEmpty(q.Get("sort"), string(workflows.SortByName))),
			Desc:   q.Get("desc") == "1",
		}

		if scope.ID != "" {
			cid := scope.ID
			list := fetch(r, query.Keys.Workflows.List(cid, view.Filter), func(ctx context.Context) ([]workflows.Workflow, error) {
				return s.api.Workflows.List(ctx, cid, view.Filter)
			})
			if list.Err != nil {
				s.pageFailed(w, r, list.Err, "Workflows")
				return
			}
			view.Rows = view.Filter.Apply(list.Data)
			workflows.Sort(view.Rows, view.Sort, view.Desc)
			view.Total = len(view.Rows)
		}
		view.Categories, view.CategoryOf = s.categories(r)

		s.renderPage(w, r, http.StatusOK, "workflows.html", pageData{
			Title:  "Workflows",
			Active: "workflows",
			Scope:  scope,
			Data:   view,
		})
	}
}

// categories is best effort: pages still render without them.
func (s *Server) categories(r *http.Request) ([]categories.Category, map[string]categories.Category) {
	res := fetch(r, query.Keys.Categories.List(), func(ctx context.Context) ([]categories.Category, error) {
		return s.api.Categories.List(ctx)
	})
	if res.Err != nil {
		log.Debug().Err(res.Err).Msg("categories unavailable")
	}
	return res.Data, categories.ByID(res.Data)
}

type workflowView struct {
	Workflow     *workflows.Workflow
	Executions   []metrics.Execution
	ExecErr      string
	Categories   []categories.Category
	CategoryOf   map[string]categories.Category
	SavedMinutes string
}

func (s *Server) loadWorkflow(r *http.Request, cid, id string) (workflowView, error) {
	res := fetch(r, query.Keys.Workflows.Detail(cid, id), func(ctx context.Context) (*workflows.Workflow, error) {
		return s.api.Workflows.Get(ctx, cid, id)
	})
	if res.Err != nil {
		return workflowView{}, res.Err
	}

	filter := metrics.ExecutionFilter{WorkflowID: id, Limit: 20}
	execs := fetch(r, query.Keys.Executions.List(cid, filter), func(ctx context.Context) ([]metrics.Execution, error) {
		return s.api.Metrics.Executions(ctx, cid, filter)
	})

	view := workflowView{
		Workflow:     res.Data,
		Executions:   execs.Data,
		ExecErr:      errText(execs.Err),
		SavedMinutes: strconv.FormatFloat(res.Data.TimeSavedPerExecutionMinutes(), 'f', -1, 64),
	}
	view.Categories, view.CategoryOf = s.categories(r)
	return view, nil
}

// WorkflowHandler shows one workflow with its recent executions.
func (s *Server) WorkflowHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := s.resolveScope(r)
		if err != nil {
			s.pageFailed(w, r, err, "Workflow")
			return
		}
		view, err := s.loadWorkflow(r, scope.ID, r.PathValue("id"))
		if err != nil {
			s.pageFailed(w, r, err, "Workflow")
			return
		}
		s.renderPage(w, r, http.StatusOK, "workflow.html", pageData{
			Title:  view.Workflow.Title(),
			Active: "workflows",
			Scope:  scope,
			Data:   view,
		})
	}
}

// UpdateWorkflowHandler saves the category and time-saved estimate of a workflow.
func (s *Server) UpdateWorkflowHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		scope, err := s.resolveScope(r)
		if err != nil {
			s.pageFailed(w, r, err, "Workflow")
			return
		}
		cid, id := scope.ID, r.PathValue("id")

		update, err := workflowUpdateFrom(r)
		if err == nil {
			_, err = mutate(r, func(ctx context.Context) (*workflows.Workflow, error) {
				return s.api.Workflows.Update(ctx, cid, id, update)
			}, query.Keys.Workflows.Client(cid))
		}
		if err != nil {
			view, loadErr := s.loadWorkflow(r, cid, id)
			if loadErr != nil {
				s.pageFailed(w, r, loadErr, "Workflow")
				return
			}
			s.actionFailed(w, r, err, "workflow.html", pageData{
				Title:  view.Workflow.Title(),
				Active: "workflows",
				Scope:  scope,
				Data:   view,
			})
			return
		}

		redirectWithNotice(w, r, fmt.Sprintf("%s/%s?client=%s", RouteWorkflows, url.PathEscape(id), url.QueryEscape(cid)), "Workflow saved")
	}
}

func workflowUpdateFrom(r *http.Request) (workflows.Update, error) {
	var update workflows.Update
	if r.Form.Has("category_id") {
		update.CategoryID = utils.Ptr(r.FormValue("category_id"))
	}
	if r.Form.Has("display_name") {
		update.DisplayName = utils.Ptr(strings.TrimSpace(r.FormValue("display_name")))
	}
	if raw := strings.TrimSpace(r.FormValue("time_saved_minutes")); raw != "" {
		minutes, err := strconv.ParseFloat(raw, 64)
		if err != nil || minutes < 0 {
			return update, invalidField("time_saved_minutes", "must be a positive number of minutes")
		}
		update.TimeSavedPerExecutionMs = utils.Ptr(int64(minutes * 60_000))
	}
	return update, nil
}

type executionsView struct {
	Rows      []metrics.Execution
	Filter    metrics.ExecutionFilter
	Statuses  []metrics.ExecutionStatus
	StreamURL string
	PollEvery int
	Workflows []workflows.Workflow
}

func executionFilterFrom(q url.Values) metrics.ExecutionFilter {
	f := metrics.ExecutionFilter{
		Status:     metrics.ExecutionStatus(q.Get("status")),
		WorkflowID: q.Get("workflow"),
		Limit:      defaultExecutionLimit,
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 && n <= 500 {
		f.Limit = n
	}
	return f
}

// ExecutionsHandler lists recent executions. The page subscribes to
// ExecutionsStreamHandler for live updates.
func (s *Server) ExecutionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := s.resolveScope(r)
		if err != nil {
			s.pageFailed(w, r, err, "Executions")
			return
		}
		ws, _ := WorkspaceFrom(r.Context())
		filter := executionFilterFrom(r.URL.Query())
		view := executionsView{
			Filter: filter,
			Statuses: []metrics.ExecutionStatus{
				metrics.ExecutionSuccess, metrics.ExecutionError, metrics.ExecutionRunning,
				metrics.ExecutionWaiting, metrics.ExecutionCanceled,
			},
			PollEvery: int(ws.Cache.Policy(query.ResourceExecutions).RefetchInterval.Seconds()),
		}

		if scope.ID != "" {
			cid := scope.ID
			res := fetch(r, query.Keys.Executions.List(cid, filter), func(ctx context.Context) ([]metrics.Execution, error) {
				return s.api.Metrics.Executions(ctx, cid, filter)
			})
			if res.Err != nil {
				s.pageFailed(w, r, res.Err, "Executions")
				return
			}
			view.Rows = res.Data

			wfs := fetch(r, query.Keys.Workflows.List(cid, workflows.Filter{}), func(ctx context.Context) ([]workflows.Workflow, error) {
				return s.api.Workflows.List(ctx, cid, workflows.Filter{})
			})
			view.Workflows = wfs.Data

			stream := url.Values{"client": {cid}}
			if filter.Status != "" {
				stream.Set("status", string(filter.Status))
			}
			if filter.WorkflowID != "" {
				stream.Set("workflow", filter.WorkflowID)
			}
			stream.Set("limit", strconv.Itoa(filter.Limit))
			view.StreamURL = RouteExecutionsStream + "?" + stream.Encode()
		}

		s.renderPage(w, r, http.StatusOK, "executions.html", pageData{
			Title:  "Executions",
			Active: "executions",
			Scope:  scope,
			Data:   view,
		})
	}
}

type streamError struct {
	Message   string `json:"message"`
	Transient bool   `json:"transient"`
}

// ExecutionsStreamHandler pushes the execution list as server-sent events,
// refetching on the executions refetch interval until the browser leaves.
func (s *Server) ExecutionsStreamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}
		scope, err := s.resolveScope(r)
		if err != nil || scope.ID == "" {
			http.Error(w, "No client selected", http.StatusBadRequest)
			return
		}
		cid := scope.ID
		filter := executionFilterFrom(r.URL.Query())
		ws, _ := WorkspaceFrom(r.Context())

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		fetcher := func(ctx context.Context) ([]metrics.Execution, error) {
			return s.api.Metrics.Executions(ctx, cid, filter)
		}
		err = query.Watch(ctx, ws.Cache, query.Keys.Executions.List(cid, filter), fetcher, func(res query.Result[[]metrics.Execution]) {
			switch {
			case isAuthFailure(res.Err):
				writeEvent(w, "unauthorized", streamError{Message: "Your session has ended"})
				cancel()
			case res.Err != nil:
				writeEvent(w, "error", streamError{Message: userMessage(res.Err), Transient: true})
			default:
				writeEvent(w, "executions", res.Data)
			}
			flusher.Flush()
		})
		log.Debug().Err(err).Str("client", cid).Msg("execution stream closed")
	}
}

func writeEvent(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Err(err).Str("event", event).Msg("failed to encode stream event")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
