package domain

import (
	"errors"
	"time"
)

// Identity is the account record the auth core operates on: credentials plus
// the snapshot (username, role) stamped into access tokens.
type Identity struct {
	ID            string
	Email         string
	Username      string
	Phone         string // optional; set before phone verification
	Role          Role
	PasswordHash  string
	EmailVerified bool
	PhoneVerified bool
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// Validate validates the identity for persistence. Returns an error describing
// the first validation failure.
func (i *Identity) Validate() error {
	if i.Email == "" {
		return errors.New("email is required")
	}
	if i.Username == "" {
		return errors.New("username is required")
	}
	if i.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if i.Role == "" {
		i.Role = RoleUser
	}
	if i.Status == "" {
		i.Status = StatusActive
	}
	return nil
}
