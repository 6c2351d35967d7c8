package api

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/auth"
)

// RequireRole ensures the authenticated actor has one of roles.
// It MUST be used after auth.AuthRequired middleware.
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := auth.GetActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if !slices.Contains(roles, actor.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: role not allowed"})
			return
		}

		c.Next()
	}
}
