package verification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"social-platform/backend/internal/security"
	"social-platform/backend/internal/verification/domain"
	"social-platform/backend/internal/verification/repository"
)

type fakeCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*domain.Code // keyed by id
	nowF  func() time.Time
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{
		codes: make(map[string]*domain.Code),
		nowF:  func() time.Time { return time.Now().UTC() },
	}
}

func (f *fakeCodeRepo) liveLocked(userID string, purpose domain.Purpose) *domain.Code {
	now := f.nowF()
	for _, c := range f.codes {
		if c.UserID == userID && c.Purpose == purpose && c.ExpiresAt.After(now) {
			return c
		}
	}
	return nil
}

func (f *fakeCodeRepo) Create(_ context.Context, c *domain.Code) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.liveLocked(c.UserID, c.Purpose) != nil {
		return repository.ErrLiveCodeExists
	}
	cp := *c
	f.codes[c.ID] = &cp
	return nil
}

func (f *fakeCodeRepo) ConsumeByHash(_ context.Context, userID string, purpose domain.Purpose, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.nowF()
	for id, c := range f.codes {
		if c.UserID == userID && c.Purpose == purpose && c.CodeHash == hash && c.ExpiresAt.After(now) {
			delete(f.codes, id)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCodeRepo) LiveExists(_ context.Context, userID string, purpose domain.Purpose) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.liveLocked(userID, purpose) != nil, nil
}

func (f *fakeCodeRepo) DeleteExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.nowF()
	var n int64
	for id, c := range f.codes {
		if !c.ExpiresAt.After(now) {
			delete(f.codes, id)
			n++
		}
	}
	return n, nil
}

func TestIssueAndConsume(t *testing.T) {
	repo := newFakeCodeRepo()
	svc := NewService(repo, 15*time.Minute)
	ctx := context.Background()

	var sent string
	if err := svc.Issue(ctx, "u1", domain.PurposeEmail, func(code string) error {
		sent = code
		return nil
	}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(sent) != security.CodeDigits {
		t.Fatalf("delivered code %q, want %d digits", sent, security.CodeDigits)
	}

	if err := svc.Consume(ctx, "u1", domain.PurposeEmail, sent); err != nil {
		t.Fatalf("consume: %v", err)
	}
	// Single use.
	if err := svc.Consume(ctx, "u1", domain.PurposeEmail, sent); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("second consume: got %v, want ErrInvalidOrExpired", err)
	}
}

func TestIssueConflictWhileLive(t *testing.T) {
	repo := newFakeCodeRepo()
	svc := NewService(repo, 15*time.Minute)
	ctx := context.Background()

	deliver := func(string) error { return nil }
	if err := svc.Issue(ctx, "u1", domain.PurposeEmail, deliver); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	if err := svc.Issue(ctx, "u1", domain.PurposeEmail, deliver); !errors.Is(err, ErrCodeAlreadyIssued) {
		t.Fatalf("second issue: got %v, want ErrCodeAlreadyIssued", err)
	}
	// A different purpose for the same user is independent.
	if err := svc.Issue(ctx, "u1", domain.PurposePasswordReset, deliver); err != nil {
		t.Fatalf("other purpose issue: %v", err)
	}
	// A different user is independent.
	if err := svc.Issue(ctx, "u2", domain.PurposeEmail, deliver); err != nil {
		t.Fatalf("other user issue: %v", err)
	}
}

func TestIssueDeliveryFailureLeavesNothing(t *testing.T) {
	repo := newFakeCodeRepo()
	svc := NewService(repo, 15*time.Minute)
	ctx := context.Background()

	err := svc.Issue(ctx, "u1", domain.PurposeEmail, func(string) error {
		return errors.New("smtp down")
	})
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("got %v, want ErrDeliveryFailed", err)
	}

	// No residue: a fresh issue succeeds immediately.
	if err := svc.Issue(ctx, "u1", domain.PurposeEmail, func(string) error { return nil }); err != nil {
		t.Fatalf("retry issue: %v", err)
	}
}

func TestConsumeWrongCodeOrPurpose(t *testing.T) {
	repo := newFakeCodeRepo()
	svc := NewService(repo, 15*time.Minute)
	ctx := context.Background()

	var sent string
	if err := svc.Issue(ctx, "u1", domain.PurposeEmail, func(code string) error {
		sent = code
		return nil
	}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	wrong := "000000"
	if sent == wrong {
		wrong = "000001"
	}
	if err := svc.Consume(ctx, "u1", domain.PurposeEmail, wrong); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("wrong code: got %v, want ErrInvalidOrExpired", err)
	}
	if err := svc.Consume(ctx, "u1", domain.PurposePhone, sent); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("wrong purpose: got %v, want ErrInvalidOrExpired", err)
	}
	if err := svc.Consume(ctx, "u2", domain.PurposeEmail, sent); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("wrong user: got %v, want ErrInvalidOrExpired", err)
	}
	// Still consumable by the right tuple after failed attempts.
	if err := svc.Consume(ctx, "u1", domain.PurposeEmail, sent); err != nil {
		t.Fatalf("consume: %v", err)
	}
}

func TestConsumeExpiredCode(t *testing.T) {
	repo := newFakeCodeRepo()
	svc := NewService(repo, time.Minute)
	ctx := context.Background()

	var sent string
	if err := svc.Issue(ctx, "u1", domain.PurposeEmail, func(code string) error {
		sent = code
		return nil
	}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Jump the fake clock past expiry.
	repo.nowF = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }

	if err := svc.Consume(ctx, "u1", domain.PurposeEmail, sent); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expired consume: got %v, want ErrInvalidOrExpired", err)
	}
	// Expired means a new code may be issued again.
	if err := svc.Issue(ctx, "u1", domain.PurposeEmail, func(string) error { return nil }); err != nil {
		t.Fatalf("reissue after expiry: %v", err)
	}
}

func TestDeleteExpired(t *testing.T) {
	repo := newFakeCodeRepo()
	svc := NewService(repo, time.Minute)
	ctx := context.Background()

	for _, u := range []string{"u1", "u2", "u3"} {
		if err := svc.Issue(ctx, u, domain.PurposeEmail, func(string) error { return nil }); err != nil {
			t.Fatalf("issue %s: %v", u, err)
		}
	}
	repo.nowF = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }

	n, err := svc.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 3 {
		t.Fatalf("swept %d, want 3", n)
	}
}
