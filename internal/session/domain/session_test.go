package domain

import (
	"testing"
	"time"
)

func TestLiveBoundary(t *testing.T) {
	exp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{ID: "s1", UserID: "u1", ExpiresAt: exp}

	if !s.Live(exp.Add(-time.Second)) {
		t.Error("session should be live before expiry")
	}
	if s.Live(exp) {
		t.Error("session expiring exactly now is no longer live")
	}
	if s.Live(exp.Add(time.Second)) {
		t.Error("session should be dead after expiry")
	}
}
