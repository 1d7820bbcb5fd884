package users

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"
)

// Role is the dashboard role of a user
type Role string

const (
	RoleAdmin  Role = "admin"  // Can manage clients, users, categories and every client's workflows
	RoleClient Role = "client" // Sees the workflows and metrics of a single client
)

// Valid returns true for a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

// User is the authenticated identity. It is persisted alongside the token,
// so it carries no secrets.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Role      Role      `json:"role"`
	ClientID  string    `json:"client_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	LastLogin time.Time `json:"last_login,omitempty"`
}

// DisplayName returns the full name, falling back to the email address
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Email
}

// IsAdmin returns true if the user has the admin role
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsClient returns true if the user has the client role
func (u User) IsClient() bool {
	return u.Role == RoleClient
}

// AuthResult is what the backend returns for a successful login or
// invitation acceptance.
type AuthResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	User         User   `json:"user"`
}

// Update is the payload an admin sends to change a user. Nil fields are left unchanged.
type Update struct {
	Role     *Role   `json:"role,omitempty"`
	ClientID *string `json:"client_id,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Filter narrows a user listing
type Filter struct {
	Role     Role
	ClientID string
	Search   string
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

// ValidateEmail checks the address is a bare RFC 5322 address
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%q is not a valid email address", email)
	}
	return nil
}
