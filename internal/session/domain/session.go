package domain

import "time"

// Session is the server-side record authorizing a refresh token to mint new
// access tokens. A row exists iff the session is live or pending cleanup;
// expired rows are swept, never resurrected. Rotation replaces the row
// (delete + insert), it never mutates one in place.
type Session struct {
	ID         string
	UserID     string
	IPAddress  string // descriptive, captured at creation; not used for trust decisions
	DeviceInfo string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Live reports whether the session is still valid at the given instant.
// A session expiring exactly at now is no longer live.
func (s *Session) Live(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

// RotationResult is the outcome of a successful refresh rotation: the
// replacement session plus tokens minted against the identity's current
// username and role (read fresh inside the rotation transaction, so role
// changes between refreshes are honored).
type RotationResult struct {
	Session      *Session
	Username     string
	Role         string
	AccessToken  string
	RefreshToken string
}
