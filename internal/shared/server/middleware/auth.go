package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"docvault-backend/internal/shared/auth"
	"docvault-backend/internal/shared/server/respond"
)

// SessionCookie is the cookie carrying the opaque session token.
const SessionCookie = "dv_session"

const (
	userIDKey    = "userId"
	principalKey = "principal"
)

// SessionResolver turns an opaque session token into a principal.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (auth.Principal, bool)
}

// Auth resolves the session cookie and stores the principal in the gin
// context. Requests without a valid session are rejected with 401.
// Paths registered on groups without this middleware stay public.
func Auth(sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			respond.Error(c, http.StatusUnauthorized, "authentication_required", "authentication required", nil)
			return
		}

		principal, ok := sessions.Resolve(c.Request.Context(), token)
		if !ok {
			respond.Error(c, http.StatusUnauthorized, "authentication_required", "session expired or invalid", nil)
			return
		}

		c.Set(userIDKey, principal.ID)
		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFromContext fetches the principal set by the auth middleware.
func PrincipalFromContext(c *gin.Context) (auth.Principal, bool) {
	if c == nil {
		return auth.Principal{}, false
	}
	val, _ := c.Get(principalKey)
	p, ok := val.(auth.Principal)
	return p, ok
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
