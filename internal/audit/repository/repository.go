package repository

import (
	"context"
	"time"

	"social-platform/backend/internal/audit/domain"
)

// Repository defines persistence for audit log entries.
type Repository interface {
	// Save persists the entry. The entry must have ID set.
	Save(ctx context.Context, a *domain.AuditLog) error
	// ListByUser returns entries for the given user, newest first, paginated
	// by limit and offset.
	ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.AuditLog, error)
	// CountRecent returns how many entries for (userID, action) were recorded
	// at or after since. Used to throttle repeated confirm failures.
	CountRecent(ctx context.Context, userID, action string, since time.Time) (int64, error)
}
