package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/vistara-dashboard/apiclient"
	apperrors "github.com/jrsteele09/vistara-dashboard/internal/errors"
)

type widget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func setupTestFixture(t *testing.T, handler http.HandlerFunc, opts ...apiclient.Option) *apiclient.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := apiclient.New(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type failingTokens struct{}

func (failingTokens) Token() (*oauth2.Token, error) {
	return nil, apperrors.ErrSessionExpired
}

func TestCallUnwrapsEnvelopeShapes(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{name: "standard", body: map[string]any{"status": "success", "data": widget{ID: "w1", Name: "gear"}, "message": "ok", "timestamp": "2026-01-01T00:00:00Z", "request_id": "r1"}},
		{name: "legacy", body: map[string]any{"success": true, "data": widget{ID: "w1", Name: "gear"}}},
		{name: "bare", body: widget{ID: "w1", Name: "gear"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/api/v1/widgets/w1", r.URL.Path)
				writeJSON(w, http.StatusOK, tt.body)
			})
			got, err := apiclient.Call[widget](context.Background(), c, http.MethodGet, apiclient.Path("/widgets/%s", "w1"), nil, nil)
			require.NoError(t, err)
			require.Equal(t, widget{ID: "w1", Name: "gear"}, got)
		})
	}
}

func TestSuccessWithoutData(t *testing.T) {
	bodies := map[string]any{
		"missing": map[string]any{"status": "success", "message": "Client created"},
		"null":    map[string]any{"status": "success", "data": nil, "message": "ok"},
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, body)
			})
			ctx := context.Background()

			got, err := apiclient.Call[*widget](ctx, c, http.MethodPost, "/widgets/", nil, nil)
			require.NoError(t, err)
			require.Nil(t, got)

			_, err = apiclient.CallRequired[*widget](ctx, c, http.MethodGet, "/widgets/w1", nil, nil)
			require.ErrorIs(t, err, apperrors.ErrEmptyPayload)
			require.ErrorIs(t, err, apperrors.ErrEnvelope)
			require.False(t, apiclient.IsTransient(err))
		})
	}
}

func TestEnvelopeErrorOnSuccessStatus(t *testing.T) {
	errBody := map[string]any{"status": "error", "message": "Client name already exists", "code": "duplicate_name", "details": map[string]string{"field": "name"}}

	t.Run("http 200", func(t *testing.T) {
		c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, errBody)
		})
		got, err := apiclient.Call[widget](context.Background(), c, http.MethodPost, "/widgets/", widget{Name: "gear"}, nil)
		require.Error(t, err)
		require.Equal(t, widget{}, got)
		require.True(t, errors.Is(err, apperrors.ErrEnvelope))
		var apiErr *apiclient.APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, apiclient.KindEnvelope, apiErr.Kind)
		require.Equal(t, "Client name already exists", apiErr.Message)
		require.Equal(t, "duplicate_name", apiErr.Code)
		require.JSONEq(t, `{"field":"name"}`, string(apiErr.Details))
		require.False(t, apiclient.IsTransient(err))
	})

	t.Run("http 500 surfaces the same message", func(t *testing.T) {
		c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, errBody)
		})
		got, err := apiclient.Call[widget](context.Background(), c, http.MethodPost, "/widgets/", widget{Name: "gear"}, nil)
		require.Error(t, err)
		require.Equal(t, widget{}, got)
		require.Equal(t, "Client name already exists", apiclient.Message(err))
		require.True(t, errors.Is(err, apperrors.ErrServerError))
		require.True(t, apiclient.IsTransient(err))
	})

	t.Run("legacy failure", func(t *testing.T) {
		c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "engine unreachable"})
		})
		_, err := apiclient.Call[widget](context.Background(), c, http.MethodGet, "/widgets/", nil, nil)
		require.True(t, errors.Is(err, apperrors.ErrEnvelope))
		require.Equal(t, "engine unreachable", apiclient.Message(err))
	})

	t.Run("detail body on 4xx", func(t *testing.T) {
		c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Workflow not found"})
		})
		_, err := apiclient.Call[widget](context.Background(), c, http.MethodGet, "/widgets/x", nil, nil)
		require.True(t, errors.Is(err, apperrors.ErrNotFound))
		require.Equal(t, "Workflow not found", apiclient.Message(err))
		require.False(t, apiclient.IsTransient(err))
	})
}

func TestTemporaryRedirectIsCorrectedOnce(t *testing.T) {
	var hits atomic.Int32
	c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/api/v1/widgets" {
			http.Redirect(w, r, "/api/v1/widgets/", http.StatusTemporaryRedirect)
			return
		}
		require.Equal(t, http.MethodPost, r.Method)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"id":"","name":"gear"}`, string(body))
		writeJSON(w, http.StatusCreated, map[string]any{"status": "success", "data": widget{ID: "w9", Name: "gear"}})
	})

	got, err := apiclient.Call[widget](context.Background(), c, http.MethodPost, "/widgets", widget{Name: "gear"}, nil)
	require.NoError(t, err)
	require.Equal(t, "w9", got.ID)
	require.Equal(t, int32(2), hits.Load())
}

func TestSecondRedirectIsTransportError(t *testing.T) {
	var hits atomic.Int32
	c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, r.URL.Path+"x", http.StatusTemporaryRedirect)
	})

	_, err := apiclient.Call[widget](context.Background(), c, http.MethodGet, "/widgets", nil, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, apperrors.ErrRedirectLoop))
	require.False(t, apiclient.IsTransient(err))
	require.Equal(t, int32(2), hits.Load())
}

func TestUnauthorizedInvokesHandler(t *testing.T) {
	c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer stale", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Token expired"})
	})

	var calls atomic.Int32
	ctx := apiclient.WithAuth(context.Background(), apiclient.Auth{
		Tokens:         oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "stale"}),
		OnUnauthorized: func(context.Context) { calls.Add(1) },
	})

	_, err := apiclient.Call[widget](ctx, c, http.MethodGet, "/widgets/", nil, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	require.False(t, apiclient.IsTransient(err))
	require.Equal(t, int32(1), calls.Load())

	t.Run("public requests skip the handler", func(t *testing.T) {
		_, err := apiclient.Call[widget](ctx, c, http.MethodPost, "/auth/login", nil, &apiclient.RequestOptions{Public: true})
		require.True(t, errors.Is(err, apperrors.ErrUnauthorized))
		require.Equal(t, int32(1), calls.Load())
	})
}

func TestTokenErrorShortCircuits(t *testing.T) {
	var hits atomic.Int32
	c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})
	ctx := apiclient.WithAuth(context.Background(), apiclient.Auth{Tokens: failingTokens{}})

	_, err := apiclient.Call[widget](ctx, c, http.MethodGet, "/widgets/", nil, nil)
	require.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	require.True(t, errors.Is(err, apperrors.ErrSessionExpired))
	require.Zero(t, hits.Load())
}

func TestHeadersAndCookies(t *testing.T) {
	c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "true", r.Header.Get("ngrok-skip-browser-warning"))
		require.NotEmpty(t, r.Header.Get(apiclient.RequestIDHeader))
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		if r.URL.Path == "/api/v1/first" {
			http.SetCookie(w, &http.Cookie{Name: "backend_sid", Value: "abc", Path: "/"})
		} else {
			ck, err := r.Cookie("backend_sid")
			require.NoError(t, err)
			require.Equal(t, "abc", ck.Value)
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": nil})
	}, apiclient.WithBypassHeaders(map[string]string{"ngrok-skip-browser-warning": "true"}))

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	ctx := apiclient.WithAuth(context.Background(), apiclient.Auth{
		Tokens: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok"}),
		Jar:    jar,
	})

	_, err = c.Do(ctx, http.MethodGet, "/first", nil, nil)
	require.NoError(t, err)
	_, err = c.Do(ctx, http.MethodGet, "/second", nil, nil)
	require.NoError(t, err)
}

func TestNetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := apiclient.New(srv.URL)
	require.NoError(t, err)
	srv.Close()

	_, err = c.Do(context.Background(), http.MethodGet, "/widgets/", nil, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, apperrors.ErrTransport))
	require.True(t, apiclient.IsTransient(err))
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := apiclient.New("ftp://example.com")
	require.Error(t, err)
}
