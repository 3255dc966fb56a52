package auth

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContextKey is the echo context key the JWT middleware stores the caller under.
const ContextKey = "user"

// Identity is the authenticated caller as seen by the domain services.
type Identity struct {
	UserID primitive.ObjectID
	Email  string
	Role   string
}

// CurrentIdentity returns the caller attached to the request, if any.
func CurrentIdentity(c echo.Context) (*Identity, bool) {
	identity, ok := c.Get(ContextKey).(*Identity)
	return identity, ok && identity != nil
}
