// Package middleware provides Gin middleware for authentication and request logging.
package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/blog/backend/internal/auth"
)

// UserIDKey is the gin.Context key holding the authenticated user's id (uint).
const UserIDKey = "user_id"

// AuthRequired rejects API requests without a valid token.
func AuthRequired(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			return
		}

		userID, err := tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// LoginRequired redirects browsers without a valid session to the login page.
func LoginRequired(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := extractToken(c); ok {
			if userID, err := tokens.Parse(raw); err == nil {
				c.Set(UserIDKey, userID)
				c.Next()
				return
			}
		}

		c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

// OptionalAuth records the user when a valid token is present and never rejects.
func OptionalAuth(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := extractToken(c); ok {
			if userID, err := tokens.Parse(raw); err == nil {
				c.Set(UserIDKey, userID)
			}
		}
		c.Next()
	}
}

// CurrentUserID returns the id stored by the auth middleware.
func CurrentUserID(c *gin.Context) (uint, bool) {
	raw, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := raw.(uint)
	return id, ok && id != 0
}

// extractToken reads "Authorization: Bearer <token>" or the session cookie.
func extractToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}

	if cookie, err := c.Cookie(auth.CookieName); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}
