package testbackend

import (
	"cmp"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jrsteele09/vistara-dashboard/chatbots"
	"github.com/jrsteele09/vistara-dashboard/guides"
	"github.com/jrsteele09/vistara-dashboard/metrics"
	"github.com/jrsteele09/vistara-dashboard/users"
	"github.com/jrsteele09/vistara-dashboard/workflows"
)

const staleAfterMinutes = 60

func (b *Backend) clientWorkflowsLocked(clientID string) []workflows.Workflow {
	out := []workflows.Workflow{}
	for _, wf := range b.workflows {
		if wf.ClientID == clientID {
			out = append(out, *wf)
		}
	}
	slices.SortFunc(out, func(x, y workflows.Workflow) int { return cmp.Compare(x.Name, y.Name) })
	return out
}

func (b *Backend) handleListWorkflows(w http.ResponseWriter, r *http.Request, u users.User) {
	cid := r.PathValue("cid")
	if !b.canAccessClient(w, r, u, cid) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.ok(w, r, http.StatusOK, b.clientWorkflowsLocked(cid))
}

func (b *Backend) handleCreateWorkflow(w http.ResponseWriter, r *http.Request, _ users.User) {
	cid := r.PathValue("cid")
	var in workflows.Create
	if err := decode(r, &in); err != nil || in.EngineWorkflowID == "" {
		b.fail(w, r, http.StatusUnprocessableEntity, "validation_error", "Engine workflow id is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	wf := &workflows.Workflow{
		ID:                      uuid.NewString(),
		ClientID:                cid,
		EngineWorkflowID:        in.EngineWorkflowID,
		Name:                    in.EngineWorkflowID,
		DisplayName:             in.DisplayName,
		Description:             in.Description,
		CategoryID:              in.CategoryID,
		TimeSavedPerExecutionMs: in.TimeSavedPerExecutionMs,
		IsActive:                true,
		CreatedAt:               b.now().UTC(),
	}
	for _, ew := range b.engine[cid] {
		if ew.ID == in.EngineWorkflowID {
			wf.Name = ew.Name
			wf.IsActive = ew.Active
		}
	}
	wf.UpdatedAt = wf.CreatedAt
	b.workflows[wf.ID] = wf
	b.ok(w, r, http.StatusCreated, *wf)
}

func (b *Backend) workflowLocked(w http.ResponseWriter, r *http.Request) *workflows.Workflow {
	wf, ok := b.workflows[r.PathValue("id")]
	if !ok || wf.ClientID != r.PathValue("cid") {
		b.fail(w, r, http.StatusNotFound, "not_found", "Workflow not found")
		return nil
	}
	return wf
}

func (b *Backend) handleGetWorkflow(w http.ResponseWriter, r *http.Request, u users.User) {
	if !b.canAccessClient(w, r, u, r.PathValue("cid")) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if wf := b.workflowLocked(w, r); wf != nil {
		b.ok(w, r, http.StatusOK, *wf)
	}
}

func (b *Backend) handleUpdateWorkflow(w http.ResponseWriter, r *http.Request, u users.User) {
	if !b.canAccessClient(w, r, u, r.PathValue("cid")) {
		return
	}
	var in workflows.Update
	if err := decode(r, &in); err != nil {
		b.fail(w, r, http.StatusBadRequest, "bad_request", "Malformed body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	wf := b.workflowLocked(w, r)
	if wf == nil {
		return
	}
	if in.DisplayName != nil {
		wf.DisplayName = *in.DisplayName
	}
	if in.Description != nil {
		wf.Description = *in.Description
	}
	if in.CategoryID != nil {
		wf.CategoryID = *in.CategoryID
	}
	if in.TimeSavedPerExecutionMs != nil {
		wf.TimeSavedPerExecutionMs = *in.TimeSavedPerExecutionMs
		wf.TimeSavedMinutes = float64(wf.SuccessfulExecutions) * wf.TimeSavedPerExecutionMinutes()
	}
	if in.IsActive != nil {
		wf.IsActive = *in.IsActive
	}
	wf.UpdatedAt = b.now().UTC()
	b.ok(w, r, http.StatusOK, *wf)
}

func (b *Backend) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request, _ users.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if wf := b.workflowLocked(w, r); wf != nil {
		delete(b.workflows, wf.ID)
		b.ok(w, r, http.StatusOK, nil)
	}
}

func (b *Backend) handleSyncWorkflows(w http.ResponseWriter, r *http.Request, u users.User) {
	cid := r.PathValue("cid")
	if !b.canAccessClient(w, r, u, cid) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now().UTC()
	known := map[string]bool{}
	for _, wf := range b.workflows {
		if wf.ClientID == cid {
			known[wf.EngineWorkflowID] = true
		}
	}
	synced := 0
	for _, ew := range b.engine[cid] {
		if known[ew.ID] {
			continue
		}
		wf := &workflows.Workflow{ID: uuid.NewString(), ClientID: cid, EngineWorkflowID: ew.ID, Name: ew.Name, IsActive: ew.Active, CreatedAt: now, UpdatedAt: now}
		b.workflows[wf.ID] = wf
		synced++
	}
	b.lastSync[cid] = now
	b.ok(w, r, http.StatusOK, metrics.SyncResult{Synced: synced, StartedAt: now, Message: strconv.Itoa(synced) + " workflows synced"})
}

func (b *Backend) handleEngineWorkflows(w http.ResponseWriter, r *http.Request, u users.User) {
	cid := r.PathValue("cid")
	if !b.canAccessClient(w, r, u, cid) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]workflows.EngineWorkflow{}, b.engine[cid]...)
	b.ok(w, r, http.StatusOK, out)
}

func (b *Backend) handleOverview(w http.ResponseWriter, r *http.Request, u users.User) {
	cid := r.PathValue("cid")
	if !b.canAccessClient(w, r, u, cid) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	out := metrics.Overview{Period: metrics.ParsePeriod(r.URL.Query().Get("period"))}
	for _, wf := range b.clientWorkflowsLocked(cid) {
		out.TotalExecutions += wf.TotalExecutions
		out.SuccessfulExecutions += wf.SuccessfulExecutions
		out.FailedExecutions += wf.FailedExecutions
		out.TimeSavedMinutes += wf.TimeSavedMinutes
		if wf.IsActive {
			out.ActiveWorkflows++
		}
	}
	if out.TotalExecutions > 0 {
		out.SuccessRate = float64(out.SuccessfulExecutions) / float64(out.TotalExecutions) * 100
	}
	b.ok(w, r, http.StatusOK, out)
}

func (b *Backend) handleWorkflowMetrics(w http.ResponseWriter, r *http.Request, u users.User) {
	cid := r.PathValue("cid")
	if !b.canAccessClient(w, r, u, cid) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	out := []metrics.WorkflowMetric{}
	for _, wf := range b.clientWorkflowsLocked(cid) {
		out = append(out, metrics.WorkflowMetric{
			WorkflowID:           wf.ID,
			WorkflowName:         wf.Title(),
			CategoryID:           wf.CategoryID,
			TotalExecutions:      wf.TotalExecutions,
			SuccessfulExecutions: wf.SuccessfulExecutions,
			FailedExecutions:     wf.FailedExecutions,
			SuccessRate:          wf.SuccessRate,
			TimeSavedMinutes:     wf.TimeSavedMinutes,
			LastExecutionAt:      wf.LastExecutionAt,
		})
	}
	b.ok(w, r, http.StatusOK, out)
}

func (b *Backend) handleExecutions(w http.ResponseWriter, r *http.Request, u users.User) {
	cid := r.PathValue("cid")
	if !b.canAccessClient(w, r, u, cid) {
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	b.mu.Lock()
	defer b.mu.Unlock()
	out := []metrics.Execution{}
	for _, e := range b.executions[cid] {
		if s := q.Get("status"); s != "" && string(e.Status) != s {
			continue
		}
		if id := q.Get("workflow_id"); id != "" && e.WorkflowID != id {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(x, y metrics.Execution) int { return y.StartedAt.Compare(x.StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	b.ok(w, r, http.StatusOK, out)
}

func (b *Backend) handleFreshness(w http.ResponseWriter, r *http.Request, u users.User) {
	cid := r.PathValue("cid")
	if !b.canAccessClient(w, r, u, cid) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	last := b.lastSync[cid]
	b.ok(w, r, http.StatusOK, metrics.Freshness{
		LastSyncAt:        last,
		IsStale:           last.IsZero() || b.now().Sub(last) > staleAfterMinutes*time.Minute,
		StaleAfterMinutes: staleAfterMinutes,
	})
}

func (b *Backend) handleMetricsSync(w http.ResponseWriter, r *http.Request, u users.User) {
	cid := r.PathValue("cid")
	if !b.canAccessClient(w, r, u, cid) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now().UTC()
	b.lastSync[cid] = now
	b.ok(w, r, http.StatusOK, metrics.SyncResult{Synced: len(b.executions[cid]), StartedAt: now, Message: "Metrics sync started"})
}

func (b *Backend) handleListChatbots(w http.ResponseWriter, r *http.Request, u users.User) {
	cid := r.URL.Query().Get("client_id")
	if cid == "" && !u.IsAdmin() {
		cid = u.ClientID
	}
	if cid != "" && !b.canAccessClient(w, r, u, cid) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	out := []chatbots.Chatbot{}
	for _, c := range b.chatbots {
		if cid == "" || c.ClientID == cid {
			out = append(out, *c)
		}
	}
	slices.SortFunc(out, func(x, y chatbots.Chatbot) int { return cmp.Compare(x.Name, y.Name) })
	b.ok(w, r, http.StatusOK, out)
}

func (b *Backend) chatbotFor(w http.ResponseWriter, r *http.Request, u users.User) (chatbots.Chatbot, bool) {
	b.mu.Lock()
	c, ok := b.chatbots[r.PathValue("id")]
	var bot chatbots.Chatbot
	if ok {
		bot = *c
	}
	b.mu.Unlock()

	if !ok {
		b.fail(w, r, http.StatusNotFound, "not_found", "Chatbot not found")
		return bot, false
	}
	return bot, b.canAccessClient(w, r, u, bot.ClientID)
}

func (b *Backend) handleGetChatbot(w http.ResponseWriter, r *http.Request, u users.User) {
	if bot, ok := b.chatbotFor(w, r, u); ok {
		b.ok(w, r, http.StatusOK, bot)
	}
}

func (b *Backend) handleSendMessage(w http.ResponseWriter, r *http.Request, u users.User) {
	bot, ok := b.chatbotFor(w, r, u)
	if !ok {
		return
	}
	var in chatbots.SendRequest
	if err := decode(r, &in); err != nil || strings.TrimSpace(in.Message) == "" {
		b.fail(w, r, http.StatusUnprocessableEntity, "validation_error", "Message is required")
		return
	}
	if !bot.IsActive {
		b.fail(w, r, http.StatusOK, "chatbot_inactive", "Chatbot is not active")
		return
	}
	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	b.ok(w, r, http.StatusOK, chatbots.Reply{Reply: bot.Name + " received: " + in.Message, SessionID: sessionID, LatencyMs: 12})
}

// Guides answer with the legacy {success, data, error} shape.
func (b *Backend) handleListGuides(w http.ResponseWriter, r *http.Request, _ users.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]guides.Guide{}, b.guides...)
	for i := range out {
		out[i].Body = ""
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": out})
}

func (b *Backend) handleGetGuide(w http.ResponseWriter, r *http.Request, _ users.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, g := range b.guides {
		if g.Slug == r.PathValue("slug") {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": g})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "Guide not found"})
}
