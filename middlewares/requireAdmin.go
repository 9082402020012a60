package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

// IsAdmin reports whether the authenticated token carries the admin role,
// either as "role" or inside a "roles" list.
func IsAdmin(ctx *gin.Context) bool {
	raw, ok := ctx.Get(ContextUser)
	if !ok {
		return false
	}
	claims, ok := raw.(jwt.MapClaims)
	if !ok {
		return false
	}
	if role, _ := claims["role"].(string); role == RoleAdmin {
		return true
	}
	roles, _ := claims["roles"].([]any)
	for _, r := range roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, exists := ctx.Get(ContextUser); !exists {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "User not found in context"})
			return
		}
		if !IsAdmin(ctx) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Admin access required"})
			return
		}
		ctx.Next()
	}
}
