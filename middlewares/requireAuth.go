package middlewares

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ContextUser     = "user"
	ContextMemberID = "memberID"
)

// RequireAuth verifies the HS256 bearer token and stores its claims and the
// franchise member id in the context.
func RequireAuth(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(tokenString) == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing bearer token"})
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(t *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		memberID := memberIDFromClaims(claims)
		if memberID == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token has no franchise member"})
			return
		}

		ctx.Set(ContextUser, claims)
		ctx.Set(ContextMemberID, memberID)
		ctx.Next()
	}
}

// memberIDFromClaims prefers franchise_member_id and falls back to user_id,
// which older tokens carry as a number.
func memberIDFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"franchise_member_id", "user_id"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

// MemberID returns the authenticated franchise member.
func MemberID(ctx *gin.Context) string {
	return ctx.GetString(ContextMemberID)
}
