package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"social-platform/backend/internal/identity/domain"
)

const identityColumns = `id, email, username, COALESCE(phone, ''), role, password_hash,
	email_verified, phone_verified, status, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the identity for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	return scanIdentity(row)
}

// GetByEmail returns the identity for email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = $1`, email)
	return scanIdentity(row)
}

// Create persists the identity. The identity must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (id, email, username, phone, role, password_hash,
			email_verified, phone_verified, status, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11)`,
		i.ID, i.Email, i.Username, i.Phone, string(i.Role), i.PasswordHash,
		i.EmailVerified, i.PhoneVerified, string(i.Status), i.CreatedAt, i.UpdatedAt)
	if err != nil {
		return fmt.Errorf("identity create: %w", err)
	}
	return nil
}

// UpdatePasswordHash replaces the password hash for the identity with the given id.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, passwordHash)
	if err != nil {
		return fmt.Errorf("identity update password: %w", err)
	}
	return nil
}

// SetEmailVerified marks the identity's email address as verified.
func (r *PostgresRepository) SetEmailVerified(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities SET email_verified = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("identity set email verified: %w", err)
	}
	return nil
}

// SetPhoneVerified marks the identity's phone number as verified.
func (r *PostgresRepository) SetPhoneVerified(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities SET phone_verified = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("identity set phone verified: %w", err)
	}
	return nil
}

func scanIdentity(row *sql.Row) (*domain.Identity, error) {
	var i domain.Identity
	var role, status string
	err := row.Scan(&i.ID, &i.Email, &i.Username, &i.Phone, &role, &i.PasswordHash,
		&i.EmailVerified, &i.PhoneVerified, &status, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.Role = domain.Role(role)
	i.Status = domain.Status(status)
	return &i, nil
}
