package middleware

import (
	"net/http"

	"Sahaaya/internal/auth"

	"github.com/labstack/echo/v4"
)

// RequireCapability enforces a role capability before the handler runs. Only
// use it on routes that do not name a resource; routes with ids check inside
// the service so that a missing resource is reported as not found first.
func RequireCapability(gate *auth.Gate, obj, act string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := auth.CurrentIdentity(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or missing token", "kind": "unauthorized"})
			}
			if !gate.Can(identity.Role, obj, act) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: insufficient permissions", "kind": "forbidden"})
			}
			return next(c)
		}
	}
}
