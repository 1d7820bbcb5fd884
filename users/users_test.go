package users_test

import (
	"testing"

	"github.com/jrsteele09/vistara-dashboard/users"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{name: "valid", password: "Sup3rSecret"},
		{name: "too short", password: "Ab1", wantErr: "at least 8 characters"},
		{name: "no upper", password: "lowercase1", wantErr: "uppercase"},
		{name: "no lower", password: "UPPERCASE1", wantErr: "lowercase"},
		{name: "no number", password: "NoNumbersHere", wantErr: "number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := users.ValidatePasswordStrength(tt.password)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateEmail(t *testing.T) {
	require.NoError(t, users.ValidateEmail("ops@acme.io"))
	require.Error(t, users.ValidateEmail("not-an-email"))
	require.Error(t, users.ValidateEmail("Ops <ops@acme.io>"))
}

func TestRoleCapabilities(t *testing.T) {
	admin := users.User{Role: users.RoleAdmin, Email: "a@x.io"}
	client := users.User{Role: users.RoleClient, FirstName: "Cleo", LastName: "Park"}

	require.True(t, admin.IsAdmin())
	require.False(t, admin.IsClient())
	require.True(t, client.IsClient())
	require.False(t, client.IsAdmin())
	require.Equal(t, "a@x.io", admin.DisplayName())
	require.Equal(t, "Cleo Park", client.DisplayName())
	require.False(t, users.Role("owner").Valid())
}
