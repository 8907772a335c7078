package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/smallbiznis/valora-accounts/internal/jwt"
)

const (
	userIDKey = "userID"
	claimsKey = "claims"
)

// Auth validates the Authorization header and attaches the acting user.
type Auth struct {
	Tokens *jwt.Generator
}

// RequireUser ensures the request carries a valid bearer access token whose
// subject is a well-formed user id.
func (m *Auth) RequireUser(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authorization header required"})
		return
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Bearer token required"})
		return
	}

	claims, err := m.Tokens.VerifyAccess(parts[1])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Invalid access token"})
		return
	}

	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Invalid access token"})
		return
	}

	c.Set(userIDKey, userID)
	c.Set(claimsKey, claims)
	c.Next()
}

// UserID returns the authenticated user id attached by RequireUser.
func UserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, ok := c.Get(userIDKey)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, ok := value.(primitive.ObjectID)
	return id, ok
}

// Claims returns the verified token claims attached by RequireUser.
func Claims(c *gin.Context) (jwt.Claims, bool) {
	value, ok := c.Get(claimsKey)
	if !ok {
		return jwt.Claims{}, false
	}
	claims, ok := value.(jwt.Claims)
	return claims, ok
}
