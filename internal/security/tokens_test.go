package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *TokenProvider {
	t.Helper()
	p, err := NewTokenProvider([]byte("access-secret"), []byte("refresh-secret"), "test-issuer", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	return p
}

func TestNewTokenProvider_RejectsBadSecrets(t *testing.T) {
	_, err := NewTokenProvider(nil, []byte("r"), "iss", time.Minute, time.Hour)
	assert.Error(t, err, "empty access secret")

	_, err = NewTokenProvider([]byte("same"), []byte("same"), "iss", time.Minute, time.Hour)
	assert.Error(t, err, "identical secrets")
}

func TestTokenProvider_AccessRoundTrip(t *testing.T) {
	p := newTestProvider(t)

	token, exp, err := p.IssueAccess("u1", "alice", "moderator", "s1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	claims, err := p.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "moderator", claims.Role)
	assert.Equal(t, "s1", claims.SessionID)
	assert.NotEmpty(t, claims.ID, "jti should be set")
}

func TestTokenProvider_RefreshRoundTrip(t *testing.T) {
	p := newTestProvider(t)

	token, exp, err := p.IssueRefresh("s1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), exp, 5*time.Second)

	claims, err := p.ParseRefresh(token)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.SessionID)
}

func TestTokenProvider_CrossTypeRejected(t *testing.T) {
	p := newTestProvider(t)

	access, _, err := p.IssueAccess("u1", "alice", "user", "s1")
	require.NoError(t, err)
	refresh, _, err := p.IssueRefresh("s1")
	require.NoError(t, err)

	// A token signed with one secret must not verify under the other.
	_, err = p.ParseRefresh(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = p.ParseAccess(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenProvider_WrongIssuerRejected(t *testing.T) {
	p := newTestProvider(t)
	other, err := NewTokenProvider([]byte("access-secret"), []byte("refresh-secret"), "other-issuer", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	token, _, err := other.IssueAccess("u1", "alice", "user", "s1")
	require.NoError(t, err)

	_, err = p.ParseAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenProvider_ExpiredCollapsesToInvalid(t *testing.T) {
	p, err := NewTokenProvider([]byte("access-secret"), []byte("refresh-secret"), "test-issuer", -time.Minute, -time.Minute)
	require.NoError(t, err)

	token, _, err := p.IssueAccess("u1", "alice", "user", "s1")
	require.NoError(t, err)

	// Expired and forged tokens must be indistinguishable to callers.
	_, err = p.ParseAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = p.ParseAccess("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenProvider_GarbageRejected(t *testing.T) {
	p := newTestProvider(t)
	for _, s := range []string{"", "a.b.c", "eyJhbGciOiJub25lIn0.e30."} {
		_, err := p.ParseRefresh(s)
		assert.ErrorIs(t, err, ErrInvalidToken, "input %q", s)
	}
}
