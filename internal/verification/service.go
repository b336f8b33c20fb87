// Package verification issues and consumes short-lived numeric verification
// codes for email confirmation, phone confirmation, and password reset.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"social-platform/backend/internal/logging"
	"social-platform/backend/internal/security"
	"social-platform/backend/internal/verification/domain"
	"social-platform/backend/internal/verification/repository"
)

var (
	// ErrCodeAlreadyIssued means a live code for the same user and purpose is
	// still pending; the caller must wait for it to expire or be consumed.
	ErrCodeAlreadyIssued = errors.New("verification code already issued")
	// ErrDeliveryFailed means the code could not be sent. Nothing is persisted
	// in that case, so the user may retry immediately.
	ErrDeliveryFailed = errors.New("verification code delivery failed")
	// ErrInvalidOrExpired covers every confirm failure: wrong code, wrong
	// purpose, expired, or already consumed. Deliberately indistinguishable.
	ErrInvalidOrExpired = errors.New("verification code invalid or expired")
)

// DeliverFunc sends the plaintext code to the user over some channel.
type DeliverFunc func(code string) error

// Service coordinates code generation, delivery, and single-use consumption.
type Service struct {
	repo    repository.Repository
	codeTTL time.Duration
}

func NewService(repo repository.Repository, codeTTL time.Duration) *Service {
	return &Service{repo: repo, codeTTL: codeTTL}
}

// Issue generates a fresh code for (userID, purpose), delivers it, and only
// then persists its hash. Ordering matters: a delivery failure must leave no
// stored code behind, otherwise the user would be locked out until expiry
// without ever having received anything.
func (s *Service) Issue(ctx context.Context, userID string, purpose domain.Purpose, deliver DeliverFunc) error {
	if !purpose.Valid() {
		return fmt.Errorf("issue: unknown purpose %q", purpose)
	}

	live, err := s.repo.LiveExists(ctx, userID, purpose)
	if err != nil {
		return fmt.Errorf("issue: %w", err)
	}
	if live {
		return ErrCodeAlreadyIssued
	}

	code, err := security.GenerateCode()
	if err != nil {
		return fmt.Errorf("issue: %w", err)
	}

	if err := deliver(code); err != nil {
		logging.FromContext(ctx).Warn("verification delivery failed",
			slog.String("user_id", userID), slog.String("purpose", string(purpose)),
			slog.String("error", err.Error()))
		return ErrDeliveryFailed
	}

	now := time.Now().UTC()
	c := &domain.Code{
		ID:        uuid.New().String(),
		UserID:    userID,
		Purpose:   purpose,
		CodeHash:  security.HashCode(code),
		CreatedAt: now,
		ExpiresAt: now.Add(s.codeTTL),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrLiveCodeExists) {
			// Lost a race with a concurrent Issue after our pre-check.
			return ErrCodeAlreadyIssued
		}
		return fmt.Errorf("issue: %w", err)
	}
	return nil
}

// Consume validates and burns the code in one step. The repository delete is
// the validity check, so a matching code can be consumed exactly once no
// matter how many confirms race.
func (s *Service) Consume(ctx context.Context, userID string, purpose domain.Purpose, code string) error {
	ok, err := s.repo.ConsumeByHash(ctx, userID, purpose, security.HashCode(code))
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	if !ok {
		return ErrInvalidOrExpired
	}
	return nil
}

// DeleteExpired sweeps expired codes; run it from the background worker.
func (s *Service) DeleteExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx)
}
