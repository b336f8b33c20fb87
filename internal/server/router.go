// Package server wires the auth orchestrator into an HTTP surface with echo.
package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"social-platform/backend/internal/security"
)

// Deps collects everything the router needs.
type Deps struct {
	Auth    *AuthHTTP
	Tokens  *security.TokenProvider
	Timeout time.Duration
}

// Register mounts all routes on e. Every route runs under the request timeout;
// logout and the verification code routes additionally require a Bearer access
// token.
func Register(e *echo.Echo, d *Deps) {
	e.Use(RequestTimeout(d.Timeout))

	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	auth := e.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/password/reset/request", d.Auth.RequestPasswordReset)
	auth.POST("/password/reset", d.Auth.ResetPassword)

	protected := auth.Group("", RequireAuth(d.Tokens))
	protected.GET("/session", d.Auth.Session)
	protected.POST("/logout", d.Auth.Logout)
	protected.POST("/code/request", d.Auth.RequestCode)
	protected.POST("/code/confirm", d.Auth.ConfirmCode)
}
