package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/media-favourites/internal/dto"
)

// UserIDKey is the gin context key holding the authenticated user id
const UserIDKey = "user_id"

// TokenValidator resolves an access token to a user id
type TokenValidator interface {
	ValidateAccessToken(token string) (string, error)
}

// AuthMiddleware validates the bearer access token and puts the user id in the context.
// A missing or malformed header is 401, a token that does not verify is 403.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   http.StatusText(http.StatusUnauthorized),
				Message: "Access token missing",
			})
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   http.StatusText(http.StatusUnauthorized),
				Message: "Invalid authorization header format",
			})
			return
		}

		userID, err := validator.ValidateAccessToken(parts[1])
		if err != nil || userID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{
				Error:   http.StatusText(http.StatusForbidden),
				Message: "Invalid token",
			})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the id set by AuthMiddleware, or "" outside protected routes
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
