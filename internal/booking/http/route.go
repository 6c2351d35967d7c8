package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/bookings")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.POST("", h.Create)
		group.GET("/mine", h.ListMine)
		group.GET("/professional", h.ListForProfessional)
		group.GET("/range", h.ListByDateRange)
		group.GET("/:id", h.Get)
		group.PATCH("/:id/status", h.UpdateStatus)
		group.PATCH("/:id/details", h.UpdateDetails)
		group.POST("/:id/cancel", h.Cancel)
	}

	g.GET("/slots/:id/booked", authMiddleware, h.SlotBooked)
}
