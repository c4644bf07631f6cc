package middleware

import (
	"net/http"

	"hotelengine/internal/domain"
	"hotelengine/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireRole ensures the authenticated user ranks at least minRole.
func RequireRole(minRole domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			c.Abort()
			return
		}

		r, _ := role.(string)
		if domain.UserRole(r).Level() < minRole.Level() {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}

func StaffOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleStaff)
}

func ManagerOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleManager)
}
