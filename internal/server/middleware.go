package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	auditdomain "social-platform/backend/internal/audit/domain"
	auditrepo "social-platform/backend/internal/audit/repository"
	"social-platform/backend/internal/security"
	"social-platform/backend/internal/server/authctx"
)

const bearerPrefix = "bearer "

// RequireAuth validates the Bearer access token and stores the caller identity
// in the request context. Missing or invalid tokens get 401 before the handler
// runs.
func RequireAuth(tokens *security.TokenProvider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearer(c.Request().Header.Get("Authorization"))
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid authorization")
			}
			claims, err := tokens.ParseAccess(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid authorization")
			}
			ctx := authctx.WithIdentity(c.Request().Context(), authctx.Identity{
				UserID:    claims.Subject,
				Username:  claims.Username,
				Role:      claims.Role,
				SessionID: claims.SessionID,
			})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// extractBearer returns the Bearer token from the Authorization header, or ""
// if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

// RequestTimeout bounds every handler call. A request that outlives the
// deadline gets 503 "server took too long", distinct from any auth failure.
func RequestTimeout(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "server took too long")
			}
			return err
		}
	}
}

// Throttle blocks code confirmation once the caller has accumulated too many
// recent failures. Failures are counted from the audit log, so the policy
// needs no extra state and survives restarts.
type Throttle struct {
	audits      auditrepo.Repository
	maxAttempts int
	window      time.Duration
}

func NewThrottle(audits auditrepo.Repository, maxAttempts int, window time.Duration) *Throttle {
	return &Throttle{audits: audits, maxAttempts: maxAttempts, window: window}
}

// Allow reports whether userID may attempt another code confirmation. Errors
// reading the audit log fail open; the consume itself is still single-use.
func (t *Throttle) Allow(ctx context.Context, userID string) bool {
	if t == nil || t.audits == nil || t.maxAttempts <= 0 {
		return true
	}
	since := time.Now().UTC().Add(-t.window)
	n, err := t.audits.CountRecent(ctx, userID, auditdomain.ActionConfirmFailure, since)
	if err != nil {
		return true
	}
	return n < int64(t.maxAttempts)
}
