// Package session holds the authenticated identity of one browser: the access
// token, the signed-in user and the display theme, mirrored into a persisted
// storage namespace so a returning browser is signed straight back in.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/vistara-dashboard/internal/errors"
	"github.com/jrsteele09/vistara-dashboard/storage"
	"github.com/jrsteele09/vistara-dashboard/users"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// State is the lifecycle position of a Store.
type State int

const (
	StateInitializing State = iota
	StateUnauthenticated
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Persisted keys.
const (
	KeyAuthToken    = "auth_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
	KeyTheme        = "theme"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Authenticator exchanges credentials for tokens.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*users.AuthResult, error)
}

// Session is the authenticated identity.
type Session struct {
	User         users.User
	Token        string
	RefreshToken string
	Expiry       time.Time
}

// Snapshot is a consistent read of the store.
type Snapshot struct {
	State State
	User  *users.User
	Theme string
}

func (s Snapshot) IsAdmin() bool {
	return s.User != nil && s.User.IsAdmin()
}

func (s Snapshot) IsClient() bool {
	return s.User != nil && s.User.IsClient()
}

// Store is safe for concurrent use. Transition hooks run while the store
// lock is held and must not call back into the store.
type Store struct {
	mu           sync.RWMutex
	state        State
	session      *Session
	theme        string
	kv           storage.Store
	auth         Authenticator
	inspector    TokenInspector
	now          func() time.Time
	logger       zerolog.Logger
	onTransition []func(from, to State)
	initTimeout  time.Duration

	initOnce sync.Once
	ready    chan struct{}
}

type Option func(*Store)

const defaultInitTimeout = 10 * time.Second

// WithInitTimeout bounds rehydration, including remote token verification.
func WithInitTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.initTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithInspector(inspector TokenInspector) Option {
	return func(s *Store) {
		s.inspector = inspector
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithDefaultTheme(theme string) Option {
	return func(s *Store) {
		if validTheme(theme) {
			s.theme = theme
		}
	}
}

// OnTransition registers fn to run on every state change.
func OnTransition(fn func(from, to State)) Option {
	return func(s *Store) {
		s.onTransition = append(s.onTransition, fn)
	}
}

// NewStore returns a store in the initializing state. Call Init to rehydrate.
func NewStore(kv storage.Store, auth Authenticator, opts ...Option) *Store {
	s := &Store{
		state:       StateInitializing,
		theme:       ThemeLight,
		kv:          kv,
		auth:        auth,
		inspector:   UnverifiedInspector{},
		now:         time.Now,
		logger:      zerolog.Nop(),
		ready:       make(chan struct{}),
		initTimeout: defaultInitTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init rehydrates from persisted state. Only the first call does any work;
// it always leaves the store unauthenticated or authenticated, giving up on
// the persisted session once the init timeout passes.
func (s *Store) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		defer close(s.ready)
		loadCtx, cancel := context.WithTimeout(ctx, s.initTimeout)
		defer cancel()
		s.rehydrate(loadCtx)
	})
}

// Ready is closed once Init has resolved.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Wait blocks until Init has resolved or ctx ends.
func (s *Store) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) rehydrate(ctx context.Context) {
	if theme, ok, err := s.kv.Get(ctx, KeyTheme); err == nil && ok && validTheme(theme) {
		s.mu.Lock()
		s.theme = theme
		s.mu.Unlock()
	}

	sess, err := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if !apperrors.Is(err, apperrors.ErrNotAuthenticated) {
			s.logger.Warn().Err(err).Msg("discarding persisted session")
		}
		if ctx.Err() != nil {
			// The load ran out of time; clearing still gets a short window.
			clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer cancel()
			ctx = clearCtx
		}
		s.clearLocked(ctx)
		s.setStateLocked(StateUnauthenticated)
		return
	}
	s.session = sess
	s.setStateLocked(StateAuthenticated)
}

func (s *Store) load(ctx context.Context) (*Session, error) {
	token, hasToken, err := s.kv.Get(ctx, KeyAuthToken)
	if err != nil {
		return nil, fmt.Errorf("[Store.load] reading token: %w", err)
	}
	rawUser, hasUser, err := s.kv.Get(ctx, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("[Store.load] reading user: %w", err)
	}
	if !hasToken || !hasUser || token == "" {
		return nil, apperrors.ErrNotAuthenticated
	}

	var user users.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return nil, fmt.Errorf("[Store.load] %w: %v", apperrors.ErrCorruptedState, err)
	}
	if user.ID == "" || !user.Role.Valid() {
		return nil, fmt.Errorf("[Store.load] %w: incomplete user", apperrors.ErrCorruptedState)
	}

	expiry, err := s.inspector.Expiry(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("[Store.load] %w", err)
	}
	if !s.now().Before(expiry) {
		return nil, apperrors.ErrTokenExpired
	}

	refresh, _, err := s.kv.Get(ctx, KeyRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("[Store.load] reading refresh token: %w", err)
	}

	return &Session{User: user, Token: token, RefreshToken: refresh, Expiry: expiry}, nil
}

// Login authenticates against the backend. The store lock is not held for
// the network call; a concurrent Login fails with ErrLoginInProgress.
func (s *Store) Login(ctx context.Context, email, password string) (users.User, error) {
	if err := s.Wait(ctx); err != nil {
		return users.User{}, err
	}

	s.mu.Lock()
	if s.state == StateAuthenticating {
		s.mu.Unlock()
		return users.User{}, apperrors.ErrLoginInProgress
	}
	s.setStateLocked(StateAuthenticating)
	s.mu.Unlock()

	res, err := s.auth.Login(ctx, strings.TrimSpace(email), password)
	if err == nil && (res == nil || res.AccessToken == "") {
		err = fmt.Errorf("[Store.Login] %w: empty token in response", apperrors.ErrInvalidToken)
	}
	if err != nil {
		s.mu.Lock()
		s.clearLocked(ctx)
		s.setStateLocked(StateUnauthenticated)
		s.mu.Unlock()
		return users.User{}, err
	}

	if err := s.establish(ctx, res, StateAuthenticating); err != nil {
		return users.User{}, err
	}
	return res.User, nil
}

// Establish installs an already issued token, e.g. after accepting an
// invitation.
func (s *Store) Establish(ctx context.Context, res *users.AuthResult) error {
	if res == nil || res.AccessToken == "" {
		return apperrors.ErrInvalidToken
	}
	if err := s.Wait(ctx); err != nil {
		return err
	}
	return s.establish(ctx, res, -1)
}

// establish persists and installs res. When expect is a valid state, the
// store must still be in it, otherwise a concurrent logout won the race.
func (s *Store) establish(ctx context.Context, res *users.AuthResult, expect State) error {
	expiry, err := s.inspector.Expiry(ctx, res.AccessToken)
	switch {
	case apperrors.Is(err, apperrors.ErrMissingExpiry) && res.ExpiresIn > 0:
		expiry = s.now().Add(time.Duration(res.ExpiresIn) * time.Second)
	case apperrors.Is(err, apperrors.ErrMissingExpiry):
		// Opaque token. The backend's 401 is the only expiry signal.
		expiry = time.Time{}
	case err != nil:
		s.fail(ctx)
		return fmt.Errorf("[Store.establish] %w", err)
	}

	rawUser, err := json.Marshal(res.User)
	if err != nil {
		s.fail(ctx)
		return fmt.Errorf("[Store.establish] encoding user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if expect >= 0 && s.state != expect {
		return apperrors.ErrInvalidSession
	}

	if err := s.persistLocked(ctx, res.AccessToken, res.RefreshToken, string(rawUser)); err != nil {
		s.clearLocked(ctx)
		s.session = nil
		s.setStateLocked(StateUnauthenticated)
		return err
	}

	s.session = &Session{
		User:         res.User,
		Token:        res.AccessToken,
		RefreshToken: res.RefreshToken,
		Expiry:       expiry,
	}
	s.setStateLocked(StateAuthenticated)
	return nil
}

func (s *Store) fail(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(ctx)
	s.setStateLocked(StateUnauthenticated)
}

func (s *Store) persistLocked(ctx context.Context, token, refresh, rawUser string) error {
	if err := s.kv.Set(ctx, KeyAuthToken, token); err != nil {
		return fmt.Errorf("[Store.persist] token: %w", err)
	}
	if refresh != "" {
		if err := s.kv.Set(ctx, KeyRefreshToken, refresh); err != nil {
			return fmt.Errorf("[Store.persist] refresh token: %w", err)
		}
	} else if err := s.kv.Delete(ctx, KeyRefreshToken); err != nil {
		return fmt.Errorf("[Store.persist] refresh token: %w", err)
	}
	if err := s.kv.Set(ctx, KeyUser, rawUser); err != nil {
		return fmt.Errorf("[Store.persist] user: %w", err)
	}
	return nil
}

// clearLocked removes the persisted session, leaving the theme in place.
func (s *Store) clearLocked(ctx context.Context) error {
	s.session = nil
	var firstErr error
	for _, key := range []string{KeyAuthToken, KeyRefreshToken, KeyUser} {
		if err := s.kv.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("[Store.clear] %s: %w", key, err)
		}
	}
	if firstErr != nil {
		s.logger.Error().Err(firstErr).Msg("failed to clear persisted session")
	}
	return firstErr
}

// Logout forgets the session. The theme survives.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.clearLocked(ctx)
	if s.state != StateInitializing {
		s.setStateLocked(StateUnauthenticated)
	}
	return err
}

// Expire ends an authenticated session the backend or the clock rejected.
// It is a no-op in any other state, so repeated 401s clear only once.
func (s *Store) Expire(ctx context.Context, reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAuthenticated {
		return
	}
	s.logger.Info().Err(reason).Str("user_id", s.session.User.ID).Msg("session expired")
	s.clearLocked(ctx)
	s.setStateLocked(StateUnauthenticated)
}

// Token implements oauth2.TokenSource.
func (s *Store) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	sess := s.session
	s.mu.RUnlock()

	if sess == nil {
		return nil, apperrors.ErrNotAuthenticated
	}
	if !sess.Expiry.IsZero() && !s.now().Before(sess.Expiry) {
		s.Expire(context.Background(), apperrors.ErrTokenExpired)
		return nil, fmt.Errorf("[Store.Token] %w", apperrors.ErrSessionExpired)
	}
	return &oauth2.Token{
		AccessToken:  sess.Token,
		TokenType:    "Bearer",
		RefreshToken: sess.RefreshToken,
		Expiry:       sess.Expiry,
	}, nil
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{State: s.state, Theme: s.theme}
	if s.session != nil {
		u := s.session.User
		snap.User = &u
	}
	return snap
}

func (s *Store) User() (users.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return users.User{}, false
	}
	return s.session.User, true
}

func (s *Store) IsAdmin() bool {
	return s.Snapshot().IsAdmin()
}

func (s *Store) IsClient() bool {
	return s.Snapshot().IsClient()
}

func (s *Store) Theme() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

func (s *Store) SetTheme(ctx context.Context, theme string) error {
	if !validTheme(theme) {
		return fmt.Errorf("[Store.SetTheme] %w: unknown theme %q", apperrors.ErrInvalidInput, theme)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(ctx, KeyTheme, theme); err != nil {
		return fmt.Errorf("[Store.SetTheme] %w", err)
	}
	s.theme = theme
	return nil
}

func (s *Store) setStateLocked(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	for _, fn := range s.onTransition {
		fn(from, to)
	}
}

func validTheme(theme string) bool {
	return theme == ThemeLight || theme == ThemeDark
}
