package session_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/vistara-dashboard/internal/errors"
	"github.com/jrsteele09/vistara-dashboard/session"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://api.vistara.test"

func signRS256(t *testing.T, key *rsa.PrivateKey, issuer string, expiry time.Time) string {
	t.Helper()
	claims := jwtlib.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "u-1",
		IssuedAt:  jwtlib.NewNumericDate(expiry.Add(-time.Hour)),
		ExpiresAt: jwtlib.NewNumericDate(expiry),
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestUnverifiedInspector(t *testing.T) {
	ctx := context.Background()
	inspector := session.UnverifiedInspector{}

	t.Run("reads exp", func(t *testing.T) {
		expiry := baseTime.Add(time.Hour)
		got, err := inspector.Expiry(ctx, signToken(t, expiry))
		require.NoError(t, err)
		require.True(t, expiry.Equal(got))
	})

	t.Run("missing exp", func(t *testing.T) {
		_, err := inspector.Expiry(ctx, signToken(t, time.Time{}))
		require.ErrorIs(t, err, apperrors.ErrMissingExpiry)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := inspector.Expiry(ctx, "a.b")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)

		_, err = inspector.Expiry(ctx, "  ")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
}

func TestOIDCInspector(t *testing.T) {
	ctx := context.Background()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	clock := &fakeClock{now: baseTime}
	inspector := session.NewOIDCInspectorWithKeys(testIssuer, keySet, clock.Now)

	t.Run("verified token", func(t *testing.T) {
		expiry := baseTime.Add(time.Hour)
		got, err := inspector.Expiry(ctx, signRS256(t, key, testIssuer, expiry))
		require.NoError(t, err)
		require.True(t, expiry.Equal(got))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		_, err := inspector.Expiry(ctx, signRS256(t, other, testIssuer, baseTime.Add(time.Hour)))
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := inspector.Expiry(ctx, signRS256(t, key, "https://elsewhere.test", baseTime.Add(time.Hour)))
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := inspector.Expiry(ctx, signRS256(t, key, testIssuer, baseTime.Add(-time.Minute)))
		require.ErrorIs(t, err, apperrors.ErrTokenExpired)
	})

	t.Run("store rehydrates with verified token", func(t *testing.T) {
		f := setupTestFixture(t)
		f.persist(t, signRS256(t, key, testIssuer, baseTime.Add(time.Hour)), f.admin)

		s := f.newStore(session.WithInspector(inspector))
		s.Init(ctx)
		require.Equal(t, session.StateAuthenticated, s.State())
	})

	t.Run("store rejects forged token", func(t *testing.T) {
		f := setupTestFixture(t)
		f.persist(t, signRS256(t, other, testIssuer, baseTime.Add(time.Hour)), f.admin)

		s := f.newStore(session.WithInspector(inspector))
		s.Init(ctx)
		require.Equal(t, session.StateUnauthenticated, s.State())
	})
}

// hangingKeySet never answers until the caller gives up, like a JWKS
// endpoint that accepts the connection and stalls.
type hangingKeySet struct{}

func (hangingKeySet) VerifySignature(ctx context.Context, _ string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestInitResolvesWhenVerificationHangs(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := setupTestFixture(t)
	f.persist(t, signRS256(t, key, testIssuer, baseTime.Add(time.Hour)), f.admin)
	inspector := session.NewOIDCInspectorWithKeys(testIssuer, hangingKeySet{}, f.clock.Now)

	s := f.newStore(session.WithInspector(inspector), session.WithInitTimeout(50*time.Millisecond))
	go s.Init(context.Background())

	select {
	case <-s.Ready():
	case <-time.After(2 * time.Second):
		t.Fatalf("init still unresolved, state=%s", s.State())
	}
	require.Equal(t, session.StateUnauthenticated, s.State())
	requireCleared(t, f.kv)
}

func TestOIDCDiscoveryTimeout(t *testing.T) {
	stalled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer stalled.Close()

	start := time.Now()
	_, err := session.NewOIDCInspector(context.Background(), stalled.URL, 100*time.Millisecond)
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
}
