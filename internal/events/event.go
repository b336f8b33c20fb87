// Package events publishes auth lifecycle events to Kafka for downstream
// consumers (the background worker, analytics, abuse detection).
package events

import (
	"context"
	"time"
)

// Event types emitted by the auth flows.
const (
	TypeUserRegistered = "auth.user_registered"
	TypeSessionCreated = "auth.session_created"
	TypeSessionRotated = "auth.session_rotated"
	TypeSessionRevoked = "auth.session_revoked"
	TypeCodeRequested  = "auth.code_requested"
	TypeCodeConfirmed  = "auth.code_confirmed"
	TypePasswordReset  = "auth.password_reset"
)

// Event is one auth lifecycle occurrence, serialized as JSON on the wire.
// Tokens and codes never appear here, only identifiers.
type Event struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Purpose   string    `json:"purpose,omitempty"`
	At        time.Time `json:"at"`
}

// Emitter publishes a single event.
type Emitter interface {
	Emit(ctx context.Context, event *Event) error
}
