package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LastCoderBoy/finice-auth/internal/domain"
	"github.com/LastCoderBoy/finice-auth/internal/service"
	"github.com/LastCoderBoy/finice-auth/pkg/response"
)

const (
	// UserIDKey is the context key for the authenticated user's ID
	UserIDKey = "user_id"
	// IdentityKey is the context key for the authenticated identity
	IdentityKey = "identity"
	// AccessTokenKey is the context key for the raw bearer token
	AccessTokenKey = "access_token"
)

// RequireAuth rejects requests without a valid bearer token and places
// the verified identity into the gin context
func RequireAuth(auth service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.AbortError(c, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(header, bearerPrefix) || len(header) == len(bearerPrefix) {
			response.AbortError(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}
		accessToken := header[len(bearerPrefix):]

		claims, err := auth.VerifyAccess(c.Request.Context(), accessToken)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrTokenExpired):
				response.AbortError(c, http.StatusUnauthorized, "Access token has expired")
			case errors.Is(err, service.ErrTokenRevoked):
				response.AbortError(c, http.StatusUnauthorized, "Access token has been revoked")
			default:
				response.AbortError(c, http.StatusUnauthorized, "Invalid access token")
			}
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(IdentityKey, domain.IdentityFromClaims(claims))
		c.Set(AccessTokenKey, accessToken)

		c.Next()
	}
}

// CurrentUserID returns the authenticated user's ID from context
func CurrentUserID(c *gin.Context) string {
	if id, exists := c.Get(UserIDKey); exists {
		if userID, ok := id.(string); ok {
			return userID
		}
	}
	return ""
}

// CurrentIdentity returns the authenticated identity from context
func CurrentIdentity(c *gin.Context) domain.Identity {
	if v, exists := c.Get(IdentityKey); exists {
		if identity, ok := v.(domain.Identity); ok {
			return identity
		}
	}
	return nil
}

// CurrentAccessToken returns the raw bearer token from context
func CurrentAccessToken(c *gin.Context) string {
	if v, exists := c.Get(AccessTokenKey); exists {
		if token, ok := v.(string); ok {
			return token
		}
	}
	return ""
}
