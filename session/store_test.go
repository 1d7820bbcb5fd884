package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/vistara-dashboard/internal/errors"
	"github.com/jrsteele09/vistara-dashboard/session"
	"github.com/jrsteele09/vistara-dashboard/storage"
	"github.com/jrsteele09/vistara-dashboard/users"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeAuth struct {
	result *users.AuthResult
	err    error
	gate   chan struct{}
	calls  int
	mu     sync.Mutex
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*users.AuthResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

type failingStore struct {
	storage.Store
	failKey string
}

func (f failingStore) Set(ctx context.Context, key, value string) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.Store.Set(ctx, key, value)
}

type testFixture struct {
	kv    storage.Store
	clock *fakeClock
	auth  *fakeAuth
	admin users.User
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	return &testFixture{
		kv:    storage.NewMemory().Namespace("browser-1"),
		clock: &fakeClock{now: baseTime},
		auth:  &fakeAuth{},
		admin: users.User{
			ID:       "u-1",
			Email:    "admin@vistara.io",
			Role:     users.RoleAdmin,
			IsActive: true,
		},
	}
}

func (f *testFixture) newStore(opts ...session.Option) *session.Store {
	opts = append([]session.Option{session.WithClock(f.clock.Now)}, opts...)
	return session.NewStore(f.kv, f.auth, opts...)
}

func (f *testFixture) persist(t *testing.T, token string, user any) {
	t.Helper()
	ctx := context.Background()
	raw, err := json.Marshal(user)
	require.NoError(t, err)
	require.NoError(t, f.kv.Set(ctx, session.KeyAuthToken, token))
	require.NoError(t, f.kv.Set(ctx, session.KeyUser, string(raw)))
}

func signToken(t *testing.T, expiry time.Time) string {
	t.Helper()
	claims := jwtlib.RegisteredClaims{Subject: "u-1"}
	if !expiry.IsZero() {
		claims.ExpiresAt = jwtlib.NewNumericDate(expiry)
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func requireCleared(t *testing.T, kv storage.Store) {
	t.Helper()
	for _, key := range []string{session.KeyAuthToken, session.KeyRefreshToken, session.KeyUser} {
		_, ok, err := kv.Get(context.Background(), key)
		require.NoError(t, err)
		require.False(t, ok, "key %s should be cleared", key)
	}
}

func TestRehydrate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token and user authenticate", func(t *testing.T) {
		f := setupTestFixture(t)
		f.persist(t, signToken(t, baseTime.Add(time.Hour)), f.admin)

		s := f.newStore()
		require.Equal(t, session.StateInitializing, s.State())
		s.Init(ctx)

		snap := s.Snapshot()
		require.Equal(t, session.StateAuthenticated, snap.State)
		require.NotNil(t, snap.User)
		require.Equal(t, f.admin.ID, snap.User.ID)
		require.True(t, s.IsAdmin())
		require.False(t, s.IsClient())
	})

	t.Run("rehydration is idempotent", func(t *testing.T) {
		f := setupTestFixture(t)
		f.persist(t, signToken(t, baseTime.Add(time.Hour)), f.admin)

		first := f.newStore()
		first.Init(ctx)
		first.Init(ctx)

		second := f.newStore()
		second.Init(ctx)

		require.Equal(t, first.Snapshot(), second.Snapshot())
	})

	t.Run("expired token is discarded", func(t *testing.T) {
		f := setupTestFixture(t)
		f.persist(t, signToken(t, baseTime.Add(-time.Minute)), f.admin)
		require.NoError(t, f.kv.Set(ctx, session.KeyTheme, session.ThemeDark))

		s := f.newStore()
		s.Init(ctx)

		require.Equal(t, session.StateUnauthenticated, s.State())
		requireCleared(t, f.kv)
		require.Equal(t, session.ThemeDark, s.Theme())
	})

	t.Run("malformed token is discarded", func(t *testing.T) {
		f := setupTestFixture(t)
		f.persist(t, "not-a-jwt", f.admin)

		s := f.newStore()
		s.Init(ctx)

		require.Equal(t, session.StateUnauthenticated, s.State())
		requireCleared(t, f.kv)
	})

	t.Run("token without expiry is discarded", func(t *testing.T) {
		f := setupTestFixture(t)
		f.persist(t, signToken(t, time.Time{}), f.admin)

		s := f.newStore()
		s.Init(ctx)

		require.Equal(t, session.StateUnauthenticated, s.State())
	})

	t.Run("corrupt user is discarded", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.kv.Set(ctx, session.KeyAuthToken, signToken(t, baseTime.Add(time.Hour))))
		require.NoError(t, f.kv.Set(ctx, session.KeyUser, "{not json"))

		s := f.newStore()
		s.Init(ctx)

		require.Equal(t, session.StateUnauthenticated, s.State())
		requireCleared(t, f.kv)
	})

	t.Run("user without a role is discarded", func(t *testing.T) {
		f := setupTestFixture(t)
		f.persist(t, signToken(t, baseTime.Add(time.Hour)), map[string]string{"id": "u-1"})

		s := f.newStore()
		s.Init(ctx)

		require.Equal(t, session.StateUnauthenticated, s.State())
	})

	t.Run("token without user is discarded", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.kv.Set(ctx, session.KeyAuthToken, signToken(t, baseTime.Add(time.Hour))))

		s := f.newStore()
		s.Init(ctx)

		require.Equal(t, session.StateUnauthenticated, s.State())
		requireCleared(t, f.kv)
	})

	t.Run("ready closes after init", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.newStore()

		select {
		case <-s.Ready():
			t.Fatal("ready before init")
		default:
		}

		go s.Init(ctx)

		waitCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		require.NoError(t, s.Wait(waitCtx))
		require.Equal(t, session.StateUnauthenticated, s.State())
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success persists token and user", func(t *testing.T) {
		f := setupTestFixture(t)
		token := signToken(t, baseTime.Add(time.Hour))
		f.auth.result = &users.AuthResult{AccessToken: token, RefreshToken: "r-1", User: f.admin}

		var transitions []session.State
		s := f.newStore(session.OnTransition(func(_, to session.State) {
			transitions = append(transitions, to)
		}))
		s.Init(ctx)

		u, err := s.Login(ctx, " admin@vistara.io ", "Adm1nPass")
		require.NoError(t, err)
		require.Equal(t, f.admin.ID, u.ID)
		require.Equal(t, session.StateAuthenticated, s.State())
		require.Equal(t, []session.State{
			session.StateUnauthenticated,
			session.StateAuthenticating,
			session.StateAuthenticated,
		}, transitions)

		stored, ok, err := f.kv.Get(ctx, session.KeyAuthToken)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, token, stored)

		refresh, ok, err := f.kv.Get(ctx, session.KeyRefreshToken)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "r-1", refresh)

		tok, err := s.Token()
		require.NoError(t, err)
		require.Equal(t, token, tok.AccessToken)
		require.Equal(t, "Bearer", tok.TokenType)
	})

	t.Run("failure surfaces the backend message", func(t *testing.T) {
		f := setupTestFixture(t)
		f.auth.err = errors.New("Invalid email or password")

		s := f.newStore()
		s.Init(ctx)

		_, err := s.Login(ctx, "admin@vistara.io", "wrong")
		require.EqualError(t, err, "Invalid email or password")
		require.Equal(t, session.StateUnauthenticated, s.State())
		requireCleared(t, f.kv)
	})

	t.Run("missing result is rejected", func(t *testing.T) {
		f := setupTestFixture(t)

		s := f.newStore()
		s.Init(ctx)

		_, err := s.Login(ctx, "admin@vistara.io", "Adm1nPass")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
		require.Equal(t, session.StateUnauthenticated, s.State())
	})

	t.Run("concurrent login is refused", func(t *testing.T) {
		f := setupTestFixture(t)
		f.auth.gate = make(chan struct{})
		f.auth.result = &users.AuthResult{AccessToken: signToken(t, baseTime.Add(time.Hour)), User: f.admin}

		s := f.newStore()
		s.Init(ctx)

		done := make(chan error, 1)
		go func() {
			_, err := s.Login(ctx, "admin@vistara.io", "Adm1nPass")
			done <- err
		}()

		require.Eventually(t, func() bool {
			return s.State() == session.StateAuthenticating
		}, time.Second, time.Millisecond)

		_, err := s.Login(ctx, "admin@vistara.io", "Adm1nPass")
		require.ErrorIs(t, err, apperrors.ErrLoginInProgress)

		close(f.auth.gate)
		require.NoError(t, <-done)
		require.Equal(t, session.StateAuthenticated, s.State())
	})

	t.Run("storage failure rolls back", func(t *testing.T) {
		f := setupTestFixture(t)
		f.kv = failingStore{Store: f.kv, failKey: session.KeyUser}
		f.auth.result = &users.AuthResult{AccessToken: signToken(t, baseTime.Add(time.Hour)), User: f.admin}

		s := f.newStore()
		s.Init(ctx)

		_, err := s.Login(ctx, "admin@vistara.io", "Adm1nPass")
		require.Error(t, err)
		require.Equal(t, session.StateUnauthenticated, s.State())
		requireCleared(t, f.kv)
		_, ok := s.User()
		require.False(t, ok)
	})

	t.Run("opaque token falls back to expires_in", func(t *testing.T) {
		f := setupTestFixture(t)
		f.auth.result = &users.AuthResult{AccessToken: signToken(t, time.Time{}), ExpiresIn: 60, User: f.admin}

		s := f.newStore()
		s.Init(ctx)

		_, err := s.Login(ctx, "admin@vistara.io", "Adm1nPass")
		require.NoError(t, err)

		tok, err := s.Token()
		require.NoError(t, err)
		require.Equal(t, baseTime.Add(time.Minute), tok.Expiry)
	})
}

func TestTokenExpiry(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.persist(t, signToken(t, baseTime.Add(10*time.Minute)), f.admin)

	s := f.newStore()
	s.Init(ctx)
	require.Equal(t, session.StateAuthenticated, s.State())

	_, err := s.Token()
	require.NoError(t, err)

	f.clock.Advance(11 * time.Minute)

	_, err = s.Token()
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	require.Equal(t, session.StateUnauthenticated, s.State())
	requireCleared(t, f.kv)

	_, err = s.Token()
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
}

func TestExpireOnlyOnce(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.persist(t, signToken(t, baseTime.Add(time.Hour)), f.admin)

	expirations := 0
	s := f.newStore(session.OnTransition(func(from, to session.State) {
		if from == session.StateAuthenticated && to == session.StateUnauthenticated {
			expirations++
		}
	}))
	s.Init(ctx)

	s.Expire(ctx, apperrors.ErrUnauthorized)
	s.Expire(ctx, apperrors.ErrUnauthorized)

	require.Equal(t, 1, expirations)
	require.Equal(t, session.StateUnauthenticated, s.State())
}

func TestLogoutKeepsTheme(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.persist(t, signToken(t, baseTime.Add(time.Hour)), f.admin)

	s := f.newStore()
	s.Init(ctx)
	require.NoError(t, s.SetTheme(ctx, session.ThemeDark))

	require.NoError(t, s.Logout(ctx))
	require.Equal(t, session.StateUnauthenticated, s.State())
	requireCleared(t, f.kv)

	theme, ok, err := f.kv.Get(ctx, session.KeyTheme)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, session.ThemeDark, theme)

	again := f.newStore()
	again.Init(ctx)
	require.Equal(t, session.ThemeDark, again.Theme())
}

func TestSetThemeRejectsUnknown(t *testing.T) {
	f := setupTestFixture(t)
	s := f.newStore(session.WithDefaultTheme(session.ThemeDark))
	require.Equal(t, session.ThemeDark, s.Theme())

	err := s.SetTheme(context.Background(), "neon")
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	require.Equal(t, session.ThemeDark, s.Theme())
}

func TestClientCapabilities(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	client := users.User{ID: "u-2", Email: "ops@acme.io", Role: users.RoleClient, ClientID: "c-1"}
	f.persist(t, signToken(t, baseTime.Add(time.Hour)), client)

	s := f.newStore()
	s.Init(ctx)

	require.True(t, s.IsClient())
	require.False(t, s.IsAdmin())
	u, ok := s.User()
	require.True(t, ok)
	require.Equal(t, "c-1", u.ClientID)
}
