package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"social-platform/backend/internal/audit/domain"
)

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
	saveErr error
}

func (f *fakeAuditRepo) Save(_ context.Context, a *domain.AuditLog) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *fakeAuditRepo) ListByUser(_ context.Context, userID string, limit, offset int32) ([]*domain.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.AuditLog
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAuditRepo) CountRecent(_ context.Context, userID, action string, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.entries {
		if e.UserID == userID && e.Action == action && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func TestLogEvent(t *testing.T) {
	repo := &fakeAuditRepo{}
	l := NewLogger(repo, func(context.Context) string { return "10.0.0.1" })

	l.LogEvent(context.Background(), "u1", domain.ActionLogin, "session", `{"session_id":"s1"}`)

	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	e := repo.entries[0]
	if e.ID == "" {
		t.Error("ID should be set")
	}
	if e.UserID != "u1" || e.Action != domain.ActionLogin || e.Resource != "session" {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.IP != "10.0.0.1" {
		t.Errorf("IP = %q, want 10.0.0.1", e.IP)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestLogEventNilExtractor(t *testing.T) {
	repo := &fakeAuditRepo{}
	l := NewLogger(repo, nil)

	l.LogEvent(context.Background(), "u1", domain.ActionLogout, "session", "")

	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	if repo.entries[0].IP != "unknown" {
		t.Errorf("IP = %q, want unknown", repo.entries[0].IP)
	}
}

func TestLogEventBestEffort(t *testing.T) {
	repo := &fakeAuditRepo{saveErr: errors.New("db down")}
	l := NewLogger(repo, nil)

	// Must not panic or surface the error.
	l.LogEvent(context.Background(), "u1", domain.ActionLogin, "session", "")
}

func TestLogEventNilRepo(t *testing.T) {
	l := NewLogger(nil, nil)
	l.LogEvent(context.Background(), "u1", domain.ActionLogin, "session", "")
}
