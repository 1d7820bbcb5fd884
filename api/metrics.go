package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jrsteele09/vistara-dashboard/apiclient"
	"github.com/jrsteele09/vistara-dashboard/metrics"
)

// MetricsAPI reads server computed execution metrics.
type MetricsAPI struct {
	c *apiclient.Client
}

func periodQuery(p metrics.Period) *apiclient.RequestOptions {
	if p == "" {
		p = metrics.PeriodWeek
	}
	return &apiclient.RequestOptions{Query: url.Values{"period": {string(p)}}}
}

func (a *MetricsAPI) Overview(ctx context.Context, clientID string, period metrics.Period) (*metrics.Overview, error) {
	if err := required("client_id", clientID); err != nil {
		return nil, err
	}
	return apiclient.CallRequired[*metrics.Overview](ctx, a.c, http.MethodGet, apiclient.Path("/metrics/clients/%s/overview", clientID), nil, periodQuery(period))
}

func (a *MetricsAPI) WorkflowMetrics(ctx context.Context, clientID string, period metrics.Period) ([]metrics.WorkflowMetric, error) {
	if err := required("client_id", clientID); err != nil {
		return nil, err
	}
	return apiclient.Call[[]metrics.WorkflowMetric](ctx, a.c, http.MethodGet, apiclient.Path("/metrics/clients/%s/workflows", clientID), nil, periodQuery(period))
}

func (a *MetricsAPI) Executions(ctx context.Context, clientID string, f metrics.ExecutionFilter) ([]metrics.Execution, error) {
	if err := required("client_id", clientID); err != nil {
		return nil, err
	}
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.WorkflowID != "" {
		q.Set("workflow_id", f.WorkflowID)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return apiclient.Call[[]metrics.Execution](ctx, a.c, http.MethodGet, apiclient.Path("/metrics/clients/%s/executions", clientID), nil, &apiclient.RequestOptions{Query: q})
}

// DataFreshness reports when metrics were last synced from the engine.
func (a *MetricsAPI) DataFreshness(ctx context.Context, clientID string) (*metrics.Freshness, error) {
	if err := required("client_id", clientID); err != nil {
		return nil, err
	}
	return apiclient.CallRequired[*metrics.Freshness](ctx, a.c, http.MethodGet, apiclient.Path("/metrics/clients/%s/freshness", clientID), nil, nil)
}

// Sync asks the backend to pull fresh execution data from the engine.
func (a *MetricsAPI) Sync(ctx context.Context, clientID string) (*metrics.SyncResult, error) {
	if err := required("client_id", clientID); err != nil {
		return nil, err
	}
	return apiclient.Call[*metrics.SyncResult](ctx, a.c, http.MethodPost, apiclient.Path("/metrics/clients/%s/sync", clientID), nil, nil)
}
