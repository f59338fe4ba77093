package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/resumeforge/tailor-client/internal/core/domain"
)

// SessionState reports whether a user is signed in.
type SessionState interface {
	State() domain.AuthState
}

// RequireSession rejects requests while no user is signed in, so the
// orchestrators behind it never run for an anonymous client.
func RequireSession(session SessionState) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if session.State() != domain.AuthAuthenticated {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not signed in"})
			}
			return next(c)
		}
	}
}
