package repository

import (
	"context"
	"errors"
	"time"

	"social-platform/backend/internal/session/domain"
)

// ErrNotFound is returned when no live session matches. An expired row is
// treated identically to an absent one.
var ErrNotFound = errors.New("session not found")

// MintFunc mints the access and refresh token pair for a freshly rotated
// session. It runs inside the rotation transaction so a minting failure
// aborts the whole rotation.
type MintFunc func(userID, username, role, sessionID string) (accessToken, refreshToken string, err error)

// Repository defines persistence for sessions.
type Repository interface {
	// Create inserts the session and, in the same transaction, deletes all
	// globally expired sessions (opportunistic sweep).
	Create(ctx context.Context, s *domain.Session) error
	// GetByID returns the session only while it is live; expired or absent
	// rows both yield ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// Delete removes a live session; ErrNotFound when none matched.
	Delete(ctx context.Context, id string) error
	// Rotate atomically replaces the session identified by id with a new one
	// carrying the same user (and ip/device unless overridden), minting the
	// token pair via mint before committing. Exactly one of two concurrent
	// rotations for the same id can succeed; the other gets ErrNotFound.
	Rotate(ctx context.Context, id, ip, deviceInfo string, ttl time.Duration, mint MintFunc) (*domain.RotationResult, error)
	// DeleteExpired removes all expired sessions and reports how many.
	DeleteExpired(ctx context.Context) (int64, error)
}
