package middleware

import (
	"net/http"

	"hostelcare/internal/domain/user"
	"hostelcare/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireRole ensures that the authenticated user has one of the roles
func RequireRole(roles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ctxRole)
		if !exists {
			response.CustomError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			return
		}

		for _, r := range roles {
			if role.(string) == string(r) {
				c.Next()
				return
			}
		}

		response.CustomError(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
	}
}

// WardenOnly middleware requires warden role
func WardenOnly() gin.HandlerFunc {
	return RequireRole(user.RoleWarden)
}
