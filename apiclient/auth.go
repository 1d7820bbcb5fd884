package apiclient

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// Auth carries the per-browser credentials a request is made with.
type Auth struct {
	// Tokens supplies the bearer token. Nil means the request is anonymous.
	Tokens oauth2.TokenSource
	// Jar holds the backend's cookies for this browser.
	Jar http.CookieJar
	// OnUnauthorized is invoked once per 401 response.
	OnUnauthorized func(ctx context.Context)
}

type authKey struct{}

// WithAuth returns a context whose requests are made with a.
func WithAuth(ctx context.Context, a Auth) context.Context {
	return context.WithValue(ctx, authKey{}, a)
}

// AuthFrom returns the Auth stored in ctx.
func AuthFrom(ctx context.Context) (Auth, bool) {
	a, ok := ctx.Value(authKey{}).(Auth)
	return a, ok
}

func (c *Client) authFor(ctx context.Context) Auth {
	if a, ok := AuthFrom(ctx); ok {
		return a
	}
	if c.opts.defaultAuth != nil {
		return *c.opts.defaultAuth
	}
	return Auth{}
}
