// Package testbackend runs an in-memory fake of the Vistara REST API for
// tests. It speaks the standard envelope (guides use the legacy shape),
// issues HS256 tokens, redirects collection paths missing their trailing
// slash with a 307, and counts every call.
package testbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jrsteele09/vistara-dashboard/categories"
	"github.com/jrsteele09/vistara-dashboard/chatbots"
	"github.com/jrsteele09/vistara-dashboard/clients"
	"github.com/jrsteele09/vistara-dashboard/guides"
	"github.com/jrsteele09/vistara-dashboard/invitations"
	"github.com/jrsteele09/vistara-dashboard/metrics"
	"github.com/jrsteele09/vistara-dashboard/users"
	"github.com/jrsteele09/vistara-dashboard/workflows"
)

const apiPrefix = "/api/v1"

type account struct {
	user     users.User
	password string
}

type injected struct {
	status  int
	message string
}

// Backend is a running fake upstream.
type Backend struct {
	server *httptest.Server
	secret []byte

	mu          sync.Mutex
	now         func() time.Time
	tokenTTL    time.Duration
	accounts    map[string]*account // by email
	revoked     map[string]bool
	refresh     map[string]string // refresh token -> email
	clients     map[string]*clients.Client
	workflows   map[string]*workflows.Workflow
	engine      map[string][]workflows.EngineWorkflow // by client id
	executions  map[string][]metrics.Execution       // by client id
	categories  map[string]*categories.Category
	invitations map[string]*invitations.Invitation
	inviteToken map[string]string // token -> invitation id
	chatbots    map[string]*chatbots.Chatbot
	guides      []guides.Guide
	lastSync    map[string]time.Time
	calls       map[string]int
	failures    map[string][]injected
	omitData    map[string]int
}

// New starts a backend that is closed when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		secret:      []byte("testbackend-secret"),
		now:         time.Now,
		tokenTTL:    time.Hour,
		accounts:    map[string]*account{},
		revoked:     map[string]bool{},
		refresh:     map[string]string{},
		clients:     map[string]*clients.Client{},
		workflows:   map[string]*workflows.Workflow{},
		engine:      map[string][]workflows.EngineWorkflow{},
		executions:  map[string][]metrics.Execution{},
		categories:  map[string]*categories.Category{},
		invitations: map[string]*invitations.Invitation{},
		inviteToken: map[string]string{},
		chatbots:    map[string]*chatbots.Chatbot{},
		lastSync:    map[string]time.Time{},
		calls:       map[string]int{},
		failures:    map[string][]injected{},
		omitData:    map[string]int{},
	}
	b.server = httptest.NewServer(b.routes())
	t.Cleanup(b.server.Close)
	return b
}

// URL is the backend root; the API lives under /api/v1.
func (b *Backend) URL() string {
	return b.server.URL
}

// SetTokenTTL changes the lifetime of tokens issued from now on.
func (b *Backend) SetTokenTTL(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokenTTL = d
}

// Calls returns how often method+path was requested. path excludes /api/v1.
func (b *Backend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+apiPrefix+path]
}

// ResetCalls zeroes every counter.
func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = map[string]int{}
}

// FailNext makes the next n requests to method+path fail with status.
func (b *Backend) FailNext(method, path string, status, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + apiPrefix + path
	for range n {
		b.failures[key] = append(b.failures[key], injected{status: status, message: http.StatusText(status)})
	}
}

// EnvelopeErrorNext makes the next request to method+path answer HTTP 200
// with an error envelope carrying message.
func (b *Backend) EnvelopeErrorNext(method, path, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + apiPrefix + path
	b.failures[key] = append(b.failures[key], injected{status: http.StatusOK, message: message})
}

// OmitDataNext makes the next request to method+path succeed as usual but
// answer with a success envelope that has no data field.
func (b *Backend) OmitDataNext(method, path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.omitData[method+" "+apiPrefix+path]++
}

type omitDataKey struct{}

func withoutData(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), omitDataKey{}, true))
}

// AddUser registers an account that can log in with password.
func (b *Backend) AddUser(u users.User, password string) users.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.IsActive = true
	b.accounts[strings.ToLower(u.Email)] = &account{user: u, password: password}
	return u
}

// AddClient stores a client.
func (b *Backend) AddClient(c clients.Client) clients.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = b.now().UTC()
		c.UpdatedAt = c.CreatedAt
	}
	b.clients[c.ID] = &c
	return c
}

// AddWorkflow stores a curated workflow.
func (b *Backend) AddWorkflow(w workflows.Workflow) workflows.Workflow {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	b.workflows[w.ID] = &w
	return w
}

// AddEngineWorkflow makes an engine workflow visible for a client.
func (b *Backend) AddEngineWorkflow(clientID string, w workflows.EngineWorkflow) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.engine[clientID] = append(b.engine[clientID], w)
}

// AddExecution records a run for a client.
func (b *Backend) AddExecution(clientID string, e metrics.Execution) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	b.executions[clientID] = append(b.executions[clientID], e)
}

// AddCategory stores a category.
func (b *Backend) AddCategory(c categories.Category) categories.Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	b.categories[c.ID] = &c
	return c
}

// AddChatbot stores a chatbot.
func (b *Backend) AddChatbot(c chatbots.Chatbot) chatbots.Chatbot {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	b.chatbots[c.ID] = &c
	return c
}

// AddGuide stores a guide.
func (b *Backend) AddGuide(g guides.Guide) guides.Guide {
	b.mu.Lock()
	defer b.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	b.guides = append(b.guides, g)
	return g
}

// AddInvitation stores a pending invitation and returns its acceptance token.
func (b *Backend) AddInvitation(inv invitations.Invitation) (invitations.Invitation, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addInvitationLocked(inv)
}

func (b *Backend) addInvitationLocked(inv invitations.Invitation) (invitations.Invitation, string) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Status == "" {
		inv.Status = invitations.StatusPending
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = b.now().UTC()
	}
	if inv.ExpiryDate.IsZero() {
		inv.ExpiryDate = inv.CreatedAt.Add(7 * 24 * time.Hour)
	}
	token := uuid.NewString()
	b.invitations[inv.ID] = &inv
	b.inviteToken[token] = inv.ID
	return inv, token
}

// Invitation returns the stored invitation.
func (b *Backend) Invitation(id string) (invitations.Invitation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	inv, ok := b.invitations[id]
	if !ok {
		return invitations.Invitation{}, false
	}
	return *inv, true
}

// IssueToken signs an access token for u valid for ttl. A negative ttl yields
// an already expired token.
func (b *Backend) IssueToken(u users.User, ttl time.Duration) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueTokenLocked(u, ttl)
}

func (b *Backend) issueTokenLocked(u users.User, ttl time.Duration) string {
	now := b.now()
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"role":  string(u.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
		"jti":   uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		panic(fmt.Sprintf("testbackend: sign token: %v", err))
	}
	return signed
}

// Revoke makes the backend reject token with 401.
func (b *Backend) Revoke(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[token] = true
}

func (b *Backend) authResultLocked(u users.User) users.AuthResult {
	access := b.issueTokenLocked(u, b.tokenTTL)
	refresh := uuid.NewString()
	b.refresh[refresh] = strings.ToLower(u.Email)
	return users.AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(b.tokenTTL.Seconds()),
		User:         u,
	}
}

type envelope struct {
	Status    string `json:"status"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
	Code      string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *Backend) ok(w http.ResponseWriter, r *http.Request, status int, data any) {
	if omit, _ := r.Context().Value(omitDataKey{}).(bool); omit {
		data = nil
	}
	writeJSON(w, status, envelope{
		Status:    "success",
		Data:      data,
		Message:   "ok",
		Timestamp: b.now().UTC().Format(time.RFC3339),
		RequestID: r.Header.Get("X-Request-Id"),
	})
}

func (b *Backend) fail(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, envelope{
		Status:    "error",
		Message:   message,
		Code:      code,
		Timestamp: b.now().UTC().Format(time.RFC3339),
		RequestID: r.Header.Get("X-Request-Id"),
	})
}

func decode(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}
