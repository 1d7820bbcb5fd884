package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"slices"
	"sync"
	"time"

	"github.com/jrsteele09/vistara-dashboard/apiclient"
	"github.com/jrsteele09/vistara-dashboard/chatbots"
	apperrors "github.com/jrsteele09/vistara-dashboard/internal/errors"
	"github.com/jrsteele09/vistara-dashboard/query"
	"github.com/jrsteele09/vistara-dashboard/session"
	"github.com/jrsteele09/vistara-dashboard/storage"
	"github.com/rs/zerolog"
)

// Workspace is everything the dashboard keeps for one browser: its session,
// its query cache and the backend's cookies.
type Workspace struct {
	ID      string
	Session *session.Store
	Cache   *query.Cache
	Jar     http.CookieJar
	Chats   *ChatLog

	mu       sync.Mutex
	lastSeen time.Time
}

const maxChatMessages = 50

// ChatLog keeps the chatbot transcripts of one browser in memory. It is
// cleared when the session ends.
type ChatLog struct {
	mu       sync.Mutex
	messages map[string][]chatbots.Message
}

func newChatLog() *ChatLog {
	return &ChatLog{messages: make(map[string][]chatbots.Message)}
}

func (c *ChatLog) Append(botID string, msgs ...chatbots.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	history := append(c.messages[botID], msgs...)
	if len(history) > maxChatMessages {
		history = history[len(history)-maxChatMessages:]
	}
	c.messages[botID] = history
}

func (c *ChatLog) History(botID string) []chatbots.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages[botID])
}

func (c *ChatLog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.messages)
}

// Context returns ctx carrying this browser's backend credentials. A 401
// from the backend expires the session, which in turn clears the cache.
func (ws *Workspace) Context(ctx context.Context) context.Context {
	return apiclient.WithAuth(ctx, apiclient.Auth{
		Tokens: ws.Session,
		Jar:    ws.Jar,
		OnUnauthorized: func(ctx context.Context) {
			ws.Session.Expire(ctx, apperrors.ErrUnauthorized)
		},
	})
}

func (ws *Workspace) touch(now time.Time) {
	ws.mu.Lock()
	ws.lastSeen = now
	ws.mu.Unlock()
}

func (ws *Workspace) idleSince() time.Time {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.lastSeen
}

// WorkspaceOptions configure the stores and caches a registry creates.
type WorkspaceOptions struct {
	Authenticator session.Authenticator
	Inspector     session.TokenInspector
	DefaultTheme  string
	CacheOptions  []query.Option
	InitTimeout   time.Duration
	Logger        zerolog.Logger
	Now           func() time.Time
}

// Workspaces is the registry of live workspaces, keyed by the browser cookie.
// Evicting a workspace keeps its persisted state, so the browser's next
// visit rehydrates it.
type Workspaces struct {
	mu      sync.RWMutex
	items   map[string]*Workspace
	backend storage.Backend
	opts    WorkspaceOptions
}

func NewWorkspaces(backend storage.Backend, opts WorkspaceOptions) *Workspaces {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Workspaces{
		items:   make(map[string]*Workspace),
		backend: backend,
		opts:    opts,
	}
}

// Open returns the workspace for id, creating it if needed. A new workspace
// starts initializing and rehydrates in the background.
func (r *Workspaces) Open(id string) (*Workspace, error) {
	if id == "" {
		return nil, fmt.Errorf("[Workspaces.Open] %w: workspace id is required", apperrors.ErrInvalidSession)
	}
	now := r.opts.Now()

	r.mu.RLock()
	ws, ok := r.items[id]
	r.mu.RUnlock()
	if ok {
		ws.touch(now)
		return ws, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.items[id]; ok {
		ws.touch(now)
		return ws, nil
	}

	ws, err := r.newWorkspace(id)
	if err != nil {
		return nil, err
	}
	ws.touch(now)
	r.items[id] = ws

	go ws.Session.Init(context.Background())
	return ws, nil
}

func (r *Workspaces) newWorkspace(id string) (*Workspace, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("[Workspaces.newWorkspace] cookie jar: %w", err)
	}

	logger := r.opts.Logger.With().Str("workspace", id).Logger()
	cacheOpts := append([]query.Option{query.WithLogger(logger)}, r.opts.CacheOptions...)
	cache := query.New(cacheOpts...)
	chats := newChatLog()

	storeOpts := []session.Option{
		session.WithLogger(logger),
		session.WithClock(r.opts.Now),
		session.OnTransition(func(from, to session.State) {
			if to == session.StateUnauthenticated {
				cache.Clear()
				chats.Clear()
			}
			logger.Debug().Stringer("from", from).Stringer("to", to).Msg("session transition")
		}),
	}
	if r.opts.Inspector != nil {
		storeOpts = append(storeOpts, session.WithInspector(r.opts.Inspector))
	}
	if r.opts.InitTimeout > 0 {
		storeOpts = append(storeOpts, session.WithInitTimeout(r.opts.InitTimeout))
	}
	if r.opts.DefaultTheme != "" {
		storeOpts = append(storeOpts, session.WithDefaultTheme(r.opts.DefaultTheme))
	}

	return &Workspace{
		ID:      id,
		Session: session.NewStore(r.backend.Namespace(id), r.opts.Authenticator, storeOpts...),
		Cache:   cache,
		Jar:     jar,
		Chats:   chats,
	}, nil
}

// Get returns a live workspace without creating one.
func (r *Workspaces) Get(id string) (*Workspace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ws, ok := r.items[id]
	return ws, ok
}

// Evict drops workspaces idle for longer than maxIdle and returns how many went.
func (r *Workspaces) Evict(maxIdle time.Duration) int {
	cutoff := r.opts.Now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, ws := range r.items {
		if ws.idleSince().Before(cutoff) {
			delete(r.items, id)
			evicted++
		}
	}
	return evicted
}

func (r *Workspaces) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

type workspaceKey struct{}

func withWorkspace(ctx context.Context, ws *Workspace) context.Context {
	return context.WithValue(ctx, workspaceKey{}, ws)
}

// WorkspaceFrom returns the workspace the request was routed with.
func WorkspaceFrom(ctx context.Context) (*Workspace, bool) {
	ws, ok := ctx.Value(workspaceKey{}).(*Workspace)
	return ws, ok
}
