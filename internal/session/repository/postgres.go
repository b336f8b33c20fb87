package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"social-platform/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the session and sweeps globally expired rows in the same
// transaction. The session must have ID, CreatedAt, and ExpiresAt set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session create: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, ip_address, device_info, created_at, expires_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)`,
		s.ID, s.UserID, s.IPAddress, s.DeviceInfo, s.CreatedAt, s.ExpiresAt); err != nil {
		return fmt.Errorf("session create: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= $1`, time.Now().UTC()); err != nil {
		return fmt.Errorf("session create sweep: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("session create: %w", err)
	}
	return nil
}

// GetByID returns the session only if it has not expired; an existing but
// expired row is treated identically to an absent one.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	var ip, device sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, ip_address, device_info, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > $2`,
		id, time.Now().UTC()).
		Scan(&s.ID, &s.UserID, &ip, &device, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.IPAddress = ip.String
	s.DeviceInfo = device.String
	return &s, nil
}

// Delete removes a live session. Returns ErrNotFound when no live row matched;
// callers are expected to hold proof the session existed.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1 AND expires_at > $2`,
		id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Rotate replaces the session in a single transaction:
//
//  1. lock the live session row joined with its owning identity (username and
//     role are read fresh, not cached on the session);
//  2. delete the old row;
//  3. insert the replacement row;
//  4. mint the new token pair;
//  5. commit.
//
// Two concurrent rotations for one id serialize on the row lock; the loser
// re-evaluates after the winner commits, finds the row gone, and gets
// ErrNotFound. Any failure rolls the whole sequence back, so no partial
// session can ever be observed.
func (r *PostgresRepository) Rotate(ctx context.Context, id, ip, deviceInfo string, ttl time.Duration, mint MintFunc) (*domain.RotationResult, error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("session rotate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var userID, username, role string
	var oldIP, oldDevice sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT s.user_id, s.ip_address, s.device_info, i.username, i.role
		FROM sessions s
		JOIN identities i ON i.id = s.user_id
		WHERE s.id = $1 AND s.expires_at > $2
		FOR UPDATE OF s`,
		id, now).
		Scan(&userID, &oldIP, &oldDevice, &username, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session rotate: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("session rotate: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		// The locked row vanished underneath us; treat as a lost race.
		return nil, ErrNotFound
	}

	if ip == "" {
		ip = oldIP.String
	}
	if deviceInfo == "" {
		deviceInfo = oldDevice.String
	}
	next := &domain.Session{
		ID:         uuid.New().String(),
		UserID:     userID,
		IPAddress:  ip,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, ip_address, device_info, created_at, expires_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)`,
		next.ID, next.UserID, next.IPAddress, next.DeviceInfo, next.CreatedAt, next.ExpiresAt); err != nil {
		return nil, fmt.Errorf("session rotate: %w", err)
	}

	access, refresh, err := mint(userID, username, role, next.ID)
	if err != nil {
		return nil, fmt.Errorf("session rotate mint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("session rotate: %w", err)
	}
	return &domain.RotationResult{
		Session:      next,
		Username:     username,
		Role:         role,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// DeleteExpired removes all expired sessions. Safe to run concurrently with
// everything else; the expiry filter is a point-in-time comparison.
func (r *PostgresRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= $1`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("session sweep: %w", err)
	}
	return res.RowsAffected()
}
