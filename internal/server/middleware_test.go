package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	auditdomain "social-platform/backend/internal/audit/domain"
	"social-platform/backend/internal/security"
	"social-platform/backend/internal/server/authctx"
)

func testTokens(t *testing.T) *security.TokenProvider {
	t.Helper()
	tokens, err := security.NewTokenProvider(
		[]byte("access-secret-for-tests"), []byte("refresh-secret-for-tests"),
		"social-auth", 15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("token provider: %v", err)
	}
	return tokens
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"  Bearer   abc  ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := extractBearer(tc.header); got != tc.want {
			t.Errorf("extractBearer(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	tokens := testTokens(t)
	access, _, err := tokens.IssueAccess("u1", "alice", "user", "s1")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	e := echo.New()
	var seen authctx.Identity
	handler := RequireAuth(tokens)(func(c echo.Context) error {
		seen, _ = authctx.FromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if seen.UserID != "u1" || seen.Username != "alice" || seen.Role != "user" || seen.SessionID != "s1" {
		t.Errorf("identity = %+v", seen)
	}
}

func TestRequireAuthRejects(t *testing.T) {
	tokens := testTokens(t)
	refresh, _, err := tokens.IssueRefresh("s1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	e := echo.New()
	handler := RequireAuth(tokens)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	for name, header := range map[string]string{
		"missing":       "",
		"garbage":       "Bearer nope",
		"refresh token": "Bearer " + refresh,
	} {
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		err := handler(e.NewContext(req, httptest.NewRecorder()))
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusUnauthorized {
			t.Errorf("%s: got %v, want 401", name, err)
		}
	}
}

func TestRequestTimeout(t *testing.T) {
	e := echo.New()
	handler := RequestTimeout(20 * time.Millisecond)(func(c echo.Context) error {
		ctx := c.Request().Context()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return c.NoContent(http.StatusOK)
		}
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	err := handler(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %v, want 503", err)
	}
	if he.Message != "server took too long" {
		t.Errorf("message = %v", he.Message)
	}
}

func TestRequestTimeoutFastHandler(t *testing.T) {
	e := echo.New()
	handler := RequestTimeout(time.Second)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	if err := handler(e.NewContext(req, httptest.NewRecorder())); err != nil {
		t.Fatalf("fast handler: %v", err)
	}
}

type countingAudits struct {
	n int64
}

func (c *countingAudits) Save(context.Context, *auditdomain.AuditLog) error { return nil }
func (c *countingAudits) ListByUser(context.Context, string, int32, int32) ([]*auditdomain.AuditLog, error) {
	return nil, nil
}
func (c *countingAudits) CountRecent(context.Context, string, string, time.Time) (int64, error) {
	return c.n, nil
}

func TestThrottle(t *testing.T) {
	audits := &countingAudits{n: 4}
	th := NewThrottle(audits, 5, 15*time.Minute)
	if !th.Allow(context.Background(), "u1") {
		t.Error("4 failures of 5 allowed should pass")
	}
	audits.n = 5
	if th.Allow(context.Background(), "u1") {
		t.Error("5 failures should block")
	}
}

func TestThrottleNilSafe(t *testing.T) {
	var th *Throttle
	if !th.Allow(context.Background(), "u1") {
		t.Error("nil throttle must fail open")
	}
}
