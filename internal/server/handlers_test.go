package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	authservice "social-platform/backend/internal/auth/service"
	"social-platform/backend/internal/verification"
)

func TestMapError(t *testing.T) {
	h := &AuthHTTP{}
	e := echo.New()

	cases := []struct {
		err  error
		code int
	}{
		{authservice.ErrInvalidCredentials, http.StatusBadRequest},
		{authservice.ErrUnauthorized, http.StatusUnauthorized},
		{authservice.ErrEmailAlreadyRegistered, http.StatusConflict},
		{verification.ErrCodeAlreadyIssued, http.StatusConflict},
		{verification.ErrDeliveryFailed, http.StatusBadGateway},
		{verification.ErrInvalidOrExpired, http.StatusBadRequest},
		{authservice.ErrInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		got := h.mapError(c, tc.err)
		he, ok := got.(*echo.HTTPError)
		if !ok || he.Code != tc.code {
			t.Errorf("mapError(%v) = %v, want status %d", tc.err, got, tc.code)
		}
	}
}
