package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers slot routes. Mutating routes additionally require
// professionalMiddleware; ownership of the slot is checked by the handler.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, professionalMiddleware gin.HandlerFunc) {
	slots := g.Group("/slots")
	slots.Use(authMiddleware)
	{
		slots.GET("/:id", h.Get)
		slots.POST("", professionalMiddleware, h.Create)
		slots.POST("/bulk", professionalMiddleware, h.CreateBulk)
		slots.PATCH("/:id", professionalMiddleware, h.Update)
		slots.DELETE("/:id", professionalMiddleware, h.Delete)
		slots.DELETE("", professionalMiddleware, h.DeleteOnDate)
	}

	professionals := g.Group("/professionals/:id/slots")
	professionals.Use(authMiddleware)
	{
		professionals.GET("", h.List)
		professionals.GET("/open", h.ListOpen)
	}
}
