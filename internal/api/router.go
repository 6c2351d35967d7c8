package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/auth"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/availability"
	availabilityHttp "github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/availability/http"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/booking"
	bookingHttp "github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/booking/http"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/professional"
)

// Config holds the services the router exposes.
type Config struct {
	IsProduction   bool
	ProdOrigins    string
	Logger         *logrus.Logger
	SlotService    availability.Service
	BookingService booking.Service
	BookingQueries booking.QueryService
	Professionals  professional.Repository
	JWTManager     *auth.JWTManager
	// Health reports whether backing stores are reachable. Nil means always healthy.
	Health func(ctx context.Context) error
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	r := gin.New()

	// Global Middleware:
	// - Logger: Logs request information to the console.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(gin.Logger(), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction {
		corsConfig.AllowOrigins = splitOrigins(cfg.ProdOrigins)
	} else {
		corsConfig.AllowOrigins = []string{
			"http://localhost:3000",
			"http://localhost:8081", // Swagger
		}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	if len(corsConfig.AllowOrigins) > 0 {
		r.Use(cors.New(corsConfig))
	}

	r.GET("/healthz", func(c *gin.Context) {
		if cfg.Health != nil {
			if err := cfg.Health(c.Request.Context()); err != nil {
				if cfg.Logger != nil {
					cfg.Logger.WithError(err).Warn("health check failed")
				}
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates the bearer JWT and stores the actor.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	professionalMiddleware := RequireRole(auth.RoleProfessional)

	slotHandler := availabilityHttp.NewHandler(cfg.SlotService, cfg.Professionals, cfg.Logger)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService, cfg.BookingQueries, cfg.Professionals, cfg.Logger)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		availabilityHttp.RegisterRoutes(v1, slotHandler, authMiddleware, professionalMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware)
	}

	return r
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
