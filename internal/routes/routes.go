package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"appointment-portal-server/internal/cancellation"
	"appointment-portal-server/internal/config"
	"appointment-portal-server/internal/handlers"
	"appointment-portal-server/internal/metrics"
	"appointment-portal-server/internal/middleware"
	"appointment-portal-server/internal/store"
)

// Dependencies are the services the routes are built from.
type Dependencies struct {
	Config   *config.Config
	Store    store.Store
	Policy   cancellation.Policy
	Executor *cancellation.Executor
	Metrics  *metrics.CancellationMetrics
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	appointmentHandler := handlers.NewAppointmentHandler(deps.Store, deps.Policy, deps.Executor, deps.Metrics, deps.Logger)

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(deps.Config.JWTSecret))
	{
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.GET("", appointmentHandler.GetAppointments)
			// Snapshot on connect, then the full list after every change
			appointmentRoutes.GET("/stream", appointmentHandler.StreamAppointments(handlers.NewUpgrader(deps.Config.Origin)))
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			// Eligibility is re-checked here against a fresh read
			appointmentRoutes.POST("/:id/cancel", appointmentHandler.CancelAppointment)
		}
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
