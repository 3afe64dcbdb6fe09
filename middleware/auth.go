package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/taskly/chat_backend/utils"
)

// CtxUserUID is the context key under which the authenticated uid is stored.
const CtxUserUID = "userUID"

// JWTAuth checks Authorization: Bearer <token>, validates the JWT, and
// injects the uid into the request context. Operations requiring sign-in
// fail fast here with 401; nothing downstream retries.
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		rawToken := strings.TrimSpace(authHeader[7:])

		uid, err := utils.VerifyToken(rawToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(CtxUserUID, uid)
		c.Next()
	}
}
