package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/vistara-dashboard/apiclient"
	"github.com/jrsteele09/vistara-dashboard/invitations"
	"github.com/jrsteele09/vistara-dashboard/users"
)

// AuthAPI covers login, the current user and invitation acceptance.
type AuthAPI struct {
	c *apiclient.Client
}

var public = &apiclient.RequestOptions{Public: true}

// Login exchanges credentials for a token and the user.
func (a *AuthAPI) Login(ctx context.Context, email, password string) (*users.AuthResult, error) {
	if err := firstError(required("email", email), required("password", password)); err != nil {
		return nil, err
	}
	body := map[string]string{"email": email, "password": password}
	return apiclient.CallRequired[*users.AuthResult](ctx, a.c, http.MethodPost, "/auth/login", body, public)
}

// Me returns the user the current token belongs to.
func (a *AuthAPI) Me(ctx context.Context) (*users.User, error) {
	return apiclient.CallRequired[*users.User](ctx, a.c, http.MethodGet, "/auth/me", nil, nil)
}

// Logout revokes the current token server-side.
func (a *AuthAPI) Logout(ctx context.Context) error {
	_, err := a.c.Do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	return err
}

// RefreshToken trades a refresh token for a new access token.
func (a *AuthAPI) RefreshToken(ctx context.Context, refreshToken string) (*users.AuthResult, error) {
	if err := required("refresh_token", refreshToken); err != nil {
		return nil, err
	}
	body := map[string]string{"refresh_token": refreshToken}
	return apiclient.CallRequired[*users.AuthResult](ctx, a.c, http.MethodPost, "/auth/refresh", body, public)
}

// ValidateInvitation checks an invitation token before showing the form.
func (a *AuthAPI) ValidateInvitation(ctx context.Context, token string) (*invitations.Validation, error) {
	if err := required("token", token); err != nil {
		return nil, err
	}
	ro := &apiclient.RequestOptions{Public: true, Query: url.Values{"token": {token}}}
	return apiclient.CallRequired[*invitations.Validation](ctx, a.c, http.MethodGet, "/invitations/validate", nil, ro)
}

// AcceptInvitation creates the invited account and signs it in.
func (a *AuthAPI) AcceptInvitation(ctx context.Context, in invitations.Accept) (*users.AuthResult, error) {
	err := firstError(
		required("token", in.Token),
		required("first_name", in.FirstName),
		required("last_name", in.LastName),
		validPassword("password", in.Password),
	)
	if err != nil {
		return nil, err
	}
	return apiclient.Call[*users.AuthResult](ctx, a.c, http.MethodPost, "/invitations/accept", in, public)
}
