package api

import (
	"scrape-stream-go/pkg/api/handlers"
	"scrape-stream-go/pkg/api/middleware"
	"scrape-stream-go/pkg/events"
	"scrape-stream-go/pkg/services"

	"github.com/gin-gonic/gin"
)

func NewRouter(service *services.SessionService, hub *events.Hub) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestLogger())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS())

	// Health check
	router.GET("/health", handlers.HealthCheck)

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/crawl", handlers.Crawl(service))
		v1.GET("/events", handlers.Events(hub))
	}

	return router
}
