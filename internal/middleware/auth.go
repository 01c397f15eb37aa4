package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GrowlyX/refactorproject-web/internal/services"
	"github.com/GrowlyX/refactorproject-web/pkg/utils"
)

const (
	ContextUserID = "user_id"
	ContextAuthID = "auth_id"
	ContextClaims = "claims"
)

// JWTMiddleware handles JWT authentication
type JWTMiddleware struct {
	jwtService *services.JWTService
}

func NewJWTMiddleware(jwtService *services.JWTService) *JWTMiddleware {
	return &JWTMiddleware{jwtService: jwtService}
}

// AuthRequired enforces JWT authentication
func (m *JWTMiddleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.extractToken(c)
		if token == "" {
			utils.Error(c, http.StatusUnauthorized, "Authorization header is required", nil)
			c.Abort()
			return
		}

		claims, err := m.jwtService.ValidateToken(token)
		if err != nil {
			utils.Error(c, http.StatusUnauthorized, "Invalid or expired token", nil)
			c.Abort()
			return
		}

		m.setUserContext(c, claims)
		c.Next()
	}
}

// AuthOptional validates a JWT when present but does not require one
func (m *JWTMiddleware) AuthOptional() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := m.jwtService.ValidateToken(token)
		if err != nil {
			c.Next()
			return
		}

		m.setUserContext(c, claims)
		c.Next()
	}
}

func (m *JWTMiddleware) extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func (m *JWTMiddleware) setUserContext(c *gin.Context, claims *services.Claims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextAuthID, claims.AuthID)
	c.Set(ContextClaims, claims)
}

// GetUserID returns the authenticated user's id, or 0 when unauthenticated.
func GetUserID(c *gin.Context) uint {
	if val, exists := c.Get(ContextUserID); exists {
		if id, ok := val.(uint); ok {
			return id
		}
	}
	return 0
}

// GetAuthID returns the authenticated principal's external auth id.
func GetAuthID(c *gin.Context) string {
	if val, exists := c.Get(ContextAuthID); exists {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}
