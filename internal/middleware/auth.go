package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yasut0ra/mini-task/internal/security"
	"github.com/yasut0ra/mini-task/internal/service"
)

const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"

	ContextUserKey   = "current_user"
	ContextClaimsKey = "access_claims"
)

// Auth guards a route group. The Authorization header takes precedence over
// the access-token cookie; expired and superseded tokens get distinct error
// codes so clients know whether a refresh is worth attempting.
func Auth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		user, claims, err := auth.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token_expired"})
			case errors.Is(err, security.ErrTokenMalformed):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			case errors.Is(err, service.ErrTokenSuperseded):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token_superseded"})
			case errors.Is(err, service.ErrUserNotFound):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_not_found"})
			default:
				// Store trouble is not an auth verdict; do not force a re-login.
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
			}
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextClaimsKey, *claims)

		c.Next()
	}
}

func extractToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token != "" {
			return token, true
		}
	}

	if cookie, err := c.Cookie(AccessCookieName); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}
