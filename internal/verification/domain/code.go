package domain

import (
	"fmt"
	"time"
)

// Purpose classifies what a verification code unlocks.
type Purpose string

const (
	PurposeEmail         Purpose = "email"
	PurposePhone         Purpose = "phone"
	PurposePasswordReset Purpose = "password_reset"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeEmail, PurposePhone, PurposePasswordReset:
		return true
	}
	return false
}

// Code represents a pending verification code (stored in verification_codes
// table). Only the SHA-256 hash of the code is ever persisted.
type Code struct {
	ID        string
	UserID    string
	Purpose   Purpose
	CodeHash  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Validate checks structural validity before persistence.
func (c *Code) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("verification code: user id required")
	}
	if !c.Purpose.Valid() {
		return fmt.Errorf("verification code: unknown purpose %q", c.Purpose)
	}
	if c.CodeHash == "" {
		return fmt.Errorf("verification code: hash required")
	}
	return nil
}
