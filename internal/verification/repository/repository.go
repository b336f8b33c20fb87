package repository

import (
	"context"

	"social-platform/backend/internal/verification/domain"
)

// Repository defines persistence for verification codes. At most one live code
// may exist per (user, purpose); Create enforces that.
type Repository interface {
	// Create persists the code and sweeps globally expired rows in the same
	// transaction. Returns ErrLiveCodeExists when a non-expired code for the
	// same user and purpose is already present.
	Create(ctx context.Context, c *domain.Code) error
	// ConsumeByHash deletes the live code matching (userID, purpose, hash) and
	// reports whether a row was removed.
	ConsumeByHash(ctx context.Context, userID string, purpose domain.Purpose, hash string) (bool, error)
	// LiveExists reports whether a non-expired code exists for (userID, purpose).
	LiveExists(ctx context.Context, userID string, purpose domain.Purpose) (bool, error)
	// DeleteExpired removes all expired codes and returns the count.
	DeleteExpired(ctx context.Context) (int64, error)
}
