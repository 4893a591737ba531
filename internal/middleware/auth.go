package middleware

import (
	"net/http"
	"strings"

	"golang-food-checkout/pkg/auth"

	"github.com/gin-gonic/gin"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
}

func NewAuthMiddleware(jwtManager *auth.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// AuthRequired validates the bearer access token and puts the caller's
// identity on the context.
func (a *AuthMiddleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims, err := a.jwtManager.ValidateAccessToken(strings.TrimSpace(tokenParts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("session_id", claims.SessionID)
		c.Set("role", claims.Role)
		c.Set("phone", claims.Phone)
		c.Next()
	}
}

// RoleRequired must run after AuthRequired.
func (a *AuthMiddleware) RoleRequired(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := GetUserRole(c)
		if userRole == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Role information missing"})
			return
		}

		for _, requiredRole := range requiredRoles {
			if userRole == requiredRole {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

func (a *AuthMiddleware) AdminRequired() gin.HandlerFunc {
	return a.RoleRequired(RoleAdmin)
}

func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

func GetSessionID(c *gin.Context) string {
	return c.GetString("session_id")
}

func GetUserRole(c *gin.Context) string {
	return c.GetString("role")
}
