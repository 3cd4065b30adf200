package middleware

import (
	"net/http"

	"tourhub/internal/domain"

	"github.com/gin-gonic/gin"
)

// AdminRequired checks that the authenticated user has the ADMIN role.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists || role.(string) != domain.RoleAdmin {
			abort(c, http.StatusForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}
