package authmodule

import (
	"net/http"
	"strings"

	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/gin-gonic/gin"
)

const (
	contextUserKey   = "auth.user"
	contextClaimsKey = "auth.claims"
)

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth rejects requests without a valid token and attaches the user
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		manager := GetManager()
		if manager == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "auth module not initialized"})
			return
		}

		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
			return
		}

		user, claims, err := manager.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": err.Error()})
			return
		}

		c.Set(contextUserKey, user)
		c.Set(contextClaimsKey, claims)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present but never rejects
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		manager := GetManager()
		if manager != nil {
			if token := bearerToken(c); token != "" {
				if user, claims, err := manager.ParseToken(token); err == nil {
					c.Set(contextUserKey, user)
					c.Set(contextClaimsKey, claims)
				}
			}
		}
		c.Next()
	}
}

// RequirePrivileged allows only staff or superuser accounts. Must run after RequireAuth.
func RequirePrivileged() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !IsPrivileged(user) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "moderator access required"})
			return
		}
		c.Next()
	}
}

// RequireSuperuser allows only superuser accounts. Must run after RequireAuth.
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.IsSuperuser {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "superuser access required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user attached by the middleware
func CurrentUser(c *gin.Context) (*database.User, bool) {
	value, exists := c.Get(contextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*database.User)
	return user, ok
}

// CurrentClaims returns the token claims attached by the middleware
func CurrentClaims(c *gin.Context) (*Claims, bool) {
	value, exists := c.Get(contextClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*Claims)
	return claims, ok
}
