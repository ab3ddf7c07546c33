package middleware

import (
	"net/http"
	"strings"

	"pest-tracker-api-server/internal/auth"
	"pest-tracker-api-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	userIDKey   = "user_id"
	userRoleKey = "user_role"
)

// TokenParser validates a bearer token and returns its claims.
type TokenParser interface {
	ParseJWT(token string) (*auth.JWTClaims, error)
}

// Authenticate checks the bearer token and stores the caller's id and role in the context.
func Authenticate(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authorization header is required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token format"})
			return
		}

		claims, err := tokens.ParseJWT(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}
		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil || !models.ValidRole(claims.Role) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		c.Set(userIDKey, userID)
		c.Set(userRoleKey, claims.Role)
		c.Next()
	}
}

// Authorize lets the request through only when the caller has one of allowedRoles.
// It must run after Authenticate.
func Authorize(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := UserRole(c)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
			return
		}

		for _, allowed := range allowedRoles {
			if allowed == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "You do not have permission to access this resource"})
	}
}

// UserID returns the authenticated caller's id.
func UserID(c *gin.Context) primitive.ObjectID {
	id, _ := c.Get(userIDKey)
	oid, _ := id.(primitive.ObjectID)
	return oid
}

// UserRole returns the authenticated caller's role, or "" before Authenticate.
func UserRole(c *gin.Context) string {
	return c.GetString(userRoleKey)
}
