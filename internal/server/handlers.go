package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	authservice "social-platform/backend/internal/auth/service"
	identitydomain "social-platform/backend/internal/identity/domain"
	"social-platform/backend/internal/logging"
	"social-platform/backend/internal/server/authctx"
	"social-platform/backend/internal/verification"
	verificationdomain "social-platform/backend/internal/verification/domain"
)

// IdentityResolver resolves an email to an identity for the unauthenticated
// password-reset entry points.
type IdentityResolver interface {
	GetByEmail(ctx context.Context, email string) (*identitydomain.Identity, error)
}

// AuthHTTP exposes the auth orchestrator over HTTP.
type AuthHTTP struct {
	Svc        *authservice.AuthService
	Identities IdentityResolver
	Throttle   *Throttle
}

type tokenResponse struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With(slog.String("handler", "auth_register"))

	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	userID, err := h.Svc.Register(ctx, req.Email, req.Username, req.Password)
	if err != nil {
		return h.mapError(c, err)
	}
	l.Info("registered", slog.String("user_id", userID))
	return c.JSON(http.StatusCreated, echo.Map{"user_id": userID})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With(slog.String("handler", "auth_login"))

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return h.mapError(c, err)
	}
	l.Info("login successful", slog.String("user_id", res.UserID))
	return c.JSON(http.StatusOK, toTokenResponse(res))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Refresh(ctx, req.RefreshToken, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, toTokenResponse(res))
}

// Session returns the caller's live session, letting clients detect a logout
// performed elsewhere while their access token is still unexpired.
func (h *AuthHTTP) Session(c echo.Context) error {
	ctx := c.Request().Context()
	id, ok := authctx.FromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid authorization")
	}
	sess, err := h.Svc.CurrentSession(ctx, id.SessionID)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session_id": sess.ID,
		"user_id":    sess.UserID,
		"created_at": sess.CreatedAt,
		"expires_at": sess.ExpiresAt,
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	id, ok := authctx.FromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid authorization")
	}
	if err := h.Svc.Logout(ctx, id.SessionID); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) RequestCode(c echo.Context) error {
	ctx := c.Request().Context()
	id, ok := authctx.FromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid authorization")
	}

	var req struct {
		Destination string `json:"destination"`
		Purpose     string `json:"purpose"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	purpose := verificationdomain.Purpose(req.Purpose)
	if purpose != verificationdomain.PurposeEmail && purpose != verificationdomain.PurposePhone {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown purpose")
	}

	if err := h.Svc.RequestCode(ctx, id.UserID, req.Destination, purpose); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "code sent"})
}

func (h *AuthHTTP) ConfirmCode(c echo.Context) error {
	ctx := c.Request().Context()
	id, ok := authctx.FromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid authorization")
	}

	var req struct {
		Purpose string `json:"purpose"`
		Code    string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	purpose := verificationdomain.Purpose(req.Purpose)
	if purpose != verificationdomain.PurposeEmail && purpose != verificationdomain.PurposePhone {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown purpose")
	}
	if !h.Throttle.Allow(ctx, id.UserID) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many attempts, try again later")
	}

	if err := h.Svc.ConfirmCode(ctx, id.UserID, purpose, req.Code); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "verified"})
}

// RequestPasswordReset is unauthenticated. It always answers 200 for
// well-formed requests so responses cannot be used to probe which emails have
// accounts; only conflict and delivery failures surface.
func (h *AuthHTTP) RequestPasswordReset(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With(slog.String("handler", "password_reset_request"))

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	ident, err := h.Identities.GetByEmail(ctx, req.Email)
	if err != nil {
		l.Error("identity lookup failed", slog.String("error", err.Error()))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if ident == nil {
		return c.JSON(http.StatusOK, echo.Map{"message": "if the account exists, a code was sent"})
	}

	if err := h.Svc.RequestCode(ctx, ident.ID, ident.Email, verificationdomain.PurposePasswordReset); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "if the account exists, a code was sent"})
}

func (h *AuthHTTP) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	ident, err := h.Identities.GetByEmail(ctx, req.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if ident == nil {
		// Same response as a bad code; no account probing through this route.
		return echo.NewHTTPError(http.StatusBadRequest, verification.ErrInvalidOrExpired.Error())
	}
	if !h.Throttle.Allow(ctx, ident.ID) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many attempts, try again later")
	}

	if err := h.Svc.ResetPassword(ctx, ident.ID, req.Code, req.NewPassword); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// mapError translates service sentinel errors to HTTP status codes. Anything
// unrecognized is treated as a validation failure from the service's input
// checks, except ErrInternal which stays 500.
func (h *AuthHTTP) mapError(c echo.Context, err error) error {
	if c.Request().Context().Err() == context.DeadlineExceeded {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server took too long")
	}
	switch {
	case errors.Is(err, authservice.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, authservice.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, authservice.ErrEmailAlreadyRegistered):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, verification.ErrCodeAlreadyIssued):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, verification.ErrDeliveryFailed):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, verification.ErrInvalidOrExpired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, authservice.ErrInternal):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

func toTokenResponse(res *authservice.AuthResult) tokenResponse {
	return tokenResponse{
		UserID:       res.UserID,
		Username:     res.Username,
		Role:         res.Role,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
	}
}
