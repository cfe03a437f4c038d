package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"appointment-portal-server/internal/utils"
)

const sessionKey = "session"

// Session identifies the patient behind a request. Handlers pass it down
// explicitly instead of reading ambient user state.
type Session struct {
	UserID string
	Email  string
}

// AuthMiddleware creates a middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, jwtSecret)
		if err != nil {
			utils.Unauthorized(c, "Invalid token: "+err.Error())
			c.Abort()
			return
		}

		c.Set(sessionKey, Session{
			UserID: claims.Identity(),
			Email:  strings.TrimSpace(claims.Email),
		})

		c.Next()
	}
}

// bearerToken reads the token from the Authorization header. Browsers cannot
// set headers on websocket upgrades, so the access_token query parameter is
// accepted there.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("access_token"); token != "" && strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			return token, true
		}
		utils.Unauthorized(c, "Authorization header required")
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		utils.Unauthorized(c, "Invalid authorization header format")
		return "", false
	}
	return parts[1], true
}

// GetSession returns the session set by AuthMiddleware.
func GetSession(c *gin.Context) (Session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}
