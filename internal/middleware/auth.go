package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// Context keys set by the auth middleware
const (
	ContextUserID = "user_id"
	ContextUser   = "user"
	ContextClaims = "claims"
)

// TokenValidator authenticates a raw token and returns its user
type TokenValidator interface {
	Authenticate(ctx context.Context, token string) (*models.User, *types.TokenClaims, error)
}

// AuthMiddleware requires a valid "Token <jwt>" or "Bearer <jwt>" header
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}

		if !authenticate(c, validator, token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token."})
			return
		}
		c.Next()
	}
}

// OptionalAuth identifies the user when a header is present and lets anonymous requests through.
// A bad token is still rejected so clients notice expired sessions.
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token, ok := bearerToken(header)
		if !ok || !authenticate(c, validator, token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token."})
			return
		}
		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user or nil
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ContextUser); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// CurrentUserID returns the authenticated user's id, or zero
func CurrentUserID(c *gin.Context) uint {
	if user := CurrentUser(c); user != nil {
		return user.ID
	}
	return 0
}

// CurrentClaims returns the claims of the presented token or nil
func CurrentClaims(c *gin.Context) *types.TokenClaims {
	if v, ok := c.Get(ContextClaims); ok {
		if claims, ok := v.(*types.TokenClaims); ok {
			return claims
		}
	}
	return nil
}

func authenticate(c *gin.Context, validator TokenValidator, token string) bool {
	user, claims, err := validator.Authenticate(c.Request.Context(), token)
	if err != nil {
		logging.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Token rejected")
		return false
	}

	c.Set(ContextUserID, user.ID)
	c.Set(ContextUser, user)
	c.Set(ContextClaims, claims)
	return true
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Token") && !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
