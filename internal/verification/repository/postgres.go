package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"social-platform/backend/internal/verification/domain"
)

// ErrLiveCodeExists is returned by Create when a non-expired code already
// exists for the same user and purpose.
var ErrLiveCodeExists = errors.New("live verification code already exists")

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a verification code repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the code. The insert is guarded so that at most one live
// code per (user, purpose) can exist; losing that guard returns
// ErrLiveCodeExists. Expired rows are swept in the same transaction.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Code) error {
	if err := c.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("verification create: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM verification_codes WHERE expires_at <= $1`, now); err != nil {
		return fmt.Errorf("verification create sweep: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO verification_codes (id, user_id, purpose, code_hash, created_at, expires_at)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE NOT EXISTS (
			SELECT 1 FROM verification_codes
			WHERE user_id = $2 AND purpose = $3 AND expires_at > $7
		)`,
		c.ID, c.UserID, string(c.Purpose), c.CodeHash, c.CreatedAt, c.ExpiresAt, now)
	if err != nil {
		return fmt.Errorf("verification create: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("verification create: %w", err)
	}
	if n == 0 {
		return ErrLiveCodeExists
	}
	return tx.Commit()
}

// ConsumeByHash deletes the live code matching (userID, purpose, hash). The
// single DELETE doubles as the validity check, so a code can never be consumed
// twice.
func (r *PostgresRepository) ConsumeByHash(ctx context.Context, userID string, purpose domain.Purpose, hash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM verification_codes
		WHERE user_id = $1 AND purpose = $2 AND code_hash = $3 AND expires_at > $4`,
		userID, string(purpose), hash, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("verification consume: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("verification consume: %w", err)
	}
	return n > 0, nil
}

// LiveExists reports whether a non-expired code exists for (userID, purpose).
func (r *PostgresRepository) LiveExists(ctx context.Context, userID string, purpose domain.Purpose) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM verification_codes
			WHERE user_id = $1 AND purpose = $2 AND expires_at > $3
		)`,
		userID, string(purpose), time.Now().UTC()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("verification live check: %w", err)
	}
	return exists, nil
}

// DeleteExpired removes all expired codes.
func (r *PostgresRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_codes WHERE expires_at <= $1`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("verification sweep: %w", err)
	}
	return res.RowsAffected()
}
