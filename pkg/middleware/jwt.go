package middleware

import (
	"net/http"
	"strings"

	"Sahaaya/internal/auth"

	"github.com/labstack/echo/v4"
)

func bearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	return strings.TrimSpace(tokenString)
}

// JWTMiddleware rejects requests without a valid bearer token and stores the
// caller's identity in the context.
func JWTMiddleware(tokens *auth.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := bearerToken(c)
			if tokenString == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing Token", "kind": "unauthorized"})
			}

			identity, err := tokens.Parse(tokenString)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid Token", "kind": "unauthorized"})
			}
			c.Set(auth.ContextKey, identity)
			return next(c)
		}
	}
}

// OptionalJWT attaches the caller when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalJWT(tokens *auth.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if tokenString := bearerToken(c); tokenString != "" {
				if identity, err := tokens.Parse(tokenString); err == nil {
					c.Set(auth.ContextKey, identity)
				}
			}
			return next(c)
		}
	}
}
