package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ctxIsAdmin = "isAdmin"

// AdminGate marks the request as admin when it carries a bearer token that is
// either an HMAC JWT with role=admin or one of the static tokens. Requests
// without a valid admin token pass through as regular clients.
func AdminGate(jwtSecret string, staticTokens []string) gin.HandlerFunc {
	jwtSecret = strings.TrimSpace(jwtSecret)
	tokens := make(map[string]struct{}, len(staticTokens))
	for _, t := range staticTokens {
		if t = strings.TrimSpace(t); t != "" {
			tokens[t] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		tokenStr, ok := bearer(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		// JWT path
		if jwtSecret != "" {
			claims := jwt.MapClaims{}
			_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenMalformed
				}
				return []byte(jwtSecret), nil
			}, jwt.WithLeeway(5*time.Second))
			if err == nil && claims["role"] == "admin" {
				c.Set(ctxIsAdmin, true)
				if sub, err := claims.GetSubject(); err == nil && sub != "" {
					c.Set("adminSubject", sub)
				}
				c.Next()
				return
			}
		}

		// static tokens
		if _, ok := tokens[tokenStr]; ok {
			c.Set(ctxIsAdmin, true)
		}
		c.Next()
	}
}

// RequireAdmin rejects requests AdminGate did not mark.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isAdmin(c) {
			if c.GetHeader("Authorization") == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
				return
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errAdminOnly.Error()})
			return
		}
		c.Next()
	}
}

func isAdmin(c *gin.Context) bool {
	return c.GetBool(ctxIsAdmin)
}

func bearer(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
