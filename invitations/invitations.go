package invitations

import (
	"time"

	"github.com/jrsteele09/vistara-dashboard/users"
)

// Status is server-authoritative; the dashboard only displays it.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusExpired  Status = "expired"
	StatusRevoked  Status = "revoked"
)

// Invitation is an emailed offer to join the dashboard with a role
type Invitation struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Role       users.Role `json:"role"`
	Status     Status     `json:"status"`
	ClientID   string     `json:"client_id,omitempty"`
	ExpiryDate time.Time  `json:"expiry_date"`
	InvitedBy  string     `json:"invited_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Actionable returns true while the invitation can still be resent or revoked
func (i Invitation) Actionable() bool {
	return i.Status == StatusPending
}

// Create is the payload for inviting someone
type Create struct {
	Email    string     `json:"email"`
	Role     users.Role `json:"role"`
	ClientID string     `json:"client_id,omitempty"`
}

// Filter narrows an invitation listing
type Filter struct {
	Status   Status
	ClientID string
}

// Validation is the result of checking an invitation token before acceptance
type Validation struct {
	Valid      bool       `json:"valid"`
	Email      string     `json:"email,omitempty"`
	Role       users.Role `json:"role,omitempty"`
	ClientName string     `json:"client_name,omitempty"`
	ExpiryDate time.Time  `json:"expiry_date,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// Accept is the payload for accepting an invitation
type Accept struct {
	Token     string `json:"token"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Link is the copy-link payload for an invitation
type Link struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}
