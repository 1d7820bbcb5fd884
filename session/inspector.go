package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/vistara-dashboard/internal/errors"
)

// TokenInspector extracts the expiry embedded in a raw access token.
type TokenInspector interface {
	Expiry(ctx context.Context, rawToken string) (time.Time, error)
}

// UnverifiedInspector reads the exp claim without checking the signature.
// The upstream API remains the authority on whether a token is accepted.
type UnverifiedInspector struct{}

func (UnverifiedInspector) Expiry(_ context.Context, rawToken string) (time.Time, error) {
	if strings.TrimSpace(rawToken) == "" {
		return time.Time{}, apperrors.ErrInvalidToken
	}

	claims := jwtlib.RegisteredClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(rawToken, &claims); err != nil {
		return time.Time{}, fmt.Errorf("[UnverifiedInspector.Expiry] %w: %v", apperrors.ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, apperrors.ErrMissingExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// OIDCInspector verifies the token signature against the issuer's keys
// before trusting its expiry.
type OIDCInspector struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCInspector discovers the issuer's JWKS endpoint. Discovery and every
// later key fetch use an HTTP client bounded by timeout.
func NewOIDCInspector(ctx context.Context, issuer string, timeout time.Duration) (*OIDCInspector, error) {
	ctx = oidc.ClientContext(ctx, &http.Client{Timeout: timeout})
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("[NewOIDCInspector] discovering %s: %w", issuer, err)
	}
	return &OIDCInspector{
		verifier: provider.Verifier(&oidc.Config{SkipClientIDCheck: true}),
	}, nil
}

// NewOIDCInspectorWithKeys verifies against a fixed key set.
func NewOIDCInspectorWithKeys(issuer string, keySet oidc.KeySet, now func() time.Time) *OIDCInspector {
	return &OIDCInspector{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{
			SkipClientIDCheck: true,
			Now:               now,
		}),
	}
}

func (i *OIDCInspector) Expiry(ctx context.Context, rawToken string) (time.Time, error) {
	if strings.TrimSpace(rawToken) == "" {
		return time.Time{}, apperrors.ErrInvalidToken
	}

	token, err := i.verifier.Verify(ctx, rawToken)
	if err != nil {
		var expired *oidc.TokenExpiredError
		if errors.As(err, &expired) {
			return expired.Expiry, apperrors.ErrTokenExpired
		}
		return time.Time{}, fmt.Errorf("[OIDCInspector.Expiry] %w: %v", apperrors.ErrInvalidToken, err)
	}
	if token.Expiry.IsZero() {
		return time.Time{}, apperrors.ErrMissingExpiry
	}
	return token.Expiry, nil
}
