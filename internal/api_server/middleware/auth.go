package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/executive-war-room/internal/auth"
)

// UserKey is the context key of the authenticated auth.User
const UserKey = "user"

// RequireRole denies the request unless the caller holds role
func RequireRole(enforcer *auth.Enforcer, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := enforcer.Enforce(c.Request, role)
		if err != nil {
			status, code := http.StatusUnauthorized, "UNAUTHORIZED"
			var authErr *auth.AuthorizationError
			if errors.As(err, &authErr) && authErr.Status == http.StatusForbidden {
				status, code = http.StatusForbidden, "FORBIDDEN"
			}
			abortWithError(c, status, code, err.Error())
			return
		}

		c.Set(UserKey, user)
		c.Next()
	}
}

// Identify attaches the caller when valid credentials are present but never denies
func Identify(enforcer *auth.Enforcer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, ok := enforcer.Identify(c.Request); ok {
			c.Set(UserKey, user)
		}
		c.Next()
	}
}

// Authorize applies RequireRole when role is set and Identify otherwise
func Authorize(enforcer *auth.Enforcer, role string) gin.HandlerFunc {
	if role == "" {
		return Identify(enforcer)
	}
	return RequireRole(enforcer, role)
}

// GetUser returns the user stored by RequireRole or Identify
func GetUser(c *gin.Context) (auth.User, bool) {
	if v, exists := c.Get(UserKey); exists {
		if user, ok := v.(auth.User); ok {
			return user, true
		}
	}
	return auth.User{}, false
}
