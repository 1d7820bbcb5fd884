package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/vistara-dashboard/apiclient"
	"github.com/jrsteele09/vistara-dashboard/metrics"
	"github.com/jrsteele09/vistara-dashboard/workflows"
)

// WorkflowsAPI manages the curated workflow records of a client.
type WorkflowsAPI struct {
	c *apiclient.Client
}

// List returns the client's workflows. The filter is forwarded to the backend
// and applied again locally, so rows are filtered even if it ignores it.
func (a *WorkflowsAPI) List(ctx context.Context, clientID string, f workflows.Filter) ([]workflows.Workflow, error) {
	if err := required("client_id", clientID); err != nil {
		return nil, err
	}
	q := url.Values{}
	if f.Status != workflows.StatusAll {
		q.Set("status", string(f.Status))
	}
	if f.CategoryID != "" {
		q.Set("category_id", f.CategoryID)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	list, err := apiclient.Call[[]workflows.Workflow](ctx, a.c, http.MethodGet, apiclient.Path("/clients/%s/workflows/", clientID), nil, &apiclient.RequestOptions{Query: q})
	if err != nil {
		return nil, err
	}
	return f.Apply(list), nil
}

func (a *WorkflowsAPI) Get(ctx context.Context, clientID, id string) (*workflows.Workflow, error) {
	if err := firstError(required("client_id", clientID), required("id", id)); err != nil {
		return nil, err
	}
	return apiclient.CallRequired[*workflows.Workflow](ctx, a.c, http.MethodGet, apiclient.Path("/clients/%s/workflows/%s", clientID, id), nil, nil)
}

func (a *WorkflowsAPI) Create(ctx context.Context, clientID string, in workflows.Create) (*workflows.Workflow, error) {
	if err := firstError(required("client_id", clientID), required("engine_workflow_id", in.EngineWorkflowID)); err != nil {
		return nil, err
	}
	if in.TimeSavedPerExecutionMs < 0 {
		return nil, &ValidationError{Field: "time_saved_per_execution_ms", Message: "must not be negative"}
	}
	return apiclient.Call[*workflows.Workflow](ctx, a.c, http.MethodPost, apiclient.Path("/clients/%s/workflows/", clientID), in, nil)
}

// Update edits display-adjacent fields; counters are server computed.
func (a *WorkflowsAPI) Update(ctx context.Context, clientID, id string, in workflows.Update) (*workflows.Workflow, error) {
	if err := firstError(required("client_id", clientID), required("id", id)); err != nil {
		return nil, err
	}
	if in.TimeSavedPerExecutionMs != nil && *in.TimeSavedPerExecutionMs < 0 {
		return nil, &ValidationError{Field: "time_saved_per_execution_ms", Message: "must not be negative"}
	}
	return apiclient.Call[*workflows.Workflow](ctx, a.c, http.MethodPut, apiclient.Path("/clients/%s/workflows/%s", clientID, id), in, nil)
}

func (a *WorkflowsAPI) Delete(ctx context.Context, clientID, id string) error {
	if err := firstError(required("client_id", clientID), required("id", id)); err != nil {
		return err
	}
	_, err := a.c.Do(ctx, http.MethodDelete, apiclient.Path("/clients/%s/workflows/%s", clientID, id), nil, nil)
	return err
}

// Sync imports engine workflows the client has not curated yet.
func (a *WorkflowsAPI) Sync(ctx context.Context, clientID string) (*metrics.SyncResult, error) {
	if err := required("client_id", clientID); err != nil {
		return nil, err
	}
	return apiclient.Call[*metrics.SyncResult](ctx, a.c, http.MethodPost, apiclient.Path("/clients/%s/workflows/sync", clientID), nil, nil)
}

// ListEngineWorkflows lists workflows as the engine reports them.
func (a *WorkflowsAPI) ListEngineWorkflows(ctx context.Context, clientID string) ([]workflows.EngineWorkflow, error) {
	if err := required("client_id", clientID); err != nil {
		return nil, err
	}
	return apiclient.Call[[]workflows.EngineWorkflow](ctx, a.c, http.MethodGet, apiclient.Path("/clients/%s/engine-workflows", clientID), nil, nil)
}
