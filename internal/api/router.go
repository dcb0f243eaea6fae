// Package api wires HTTP routes and middleware.
package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jonesrussell/gomonitor/internal/config"
	"github.com/jonesrussell/gomonitor/internal/handlers"
	"github.com/jonesrussell/gomonitor/internal/logger"
)

const corsMaxAgeHours = 12

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(
	cfg *config.Config,
	recordHandler *handlers.RecordHandler,
	healthHandler *handlers.HealthHandler,
	log logger.Logger,
) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           corsMaxAgeHours * time.Hour,
	}))

	router.Use(requestLogger(log))
	router.Use(gin.Recovery())

	router.GET("/health", healthHandler.Check)
	router.GET("/health/live", healthHandler.Live)

	v1 := router.Group("/api/v1")

	records := v1.Group("/records")
	records.GET("", recordHandler.List)
	records.POST("", recordHandler.Register)
	records.POST("/bulk", recordHandler.BulkRegister)
	records.DELETE("", recordHandler.Remove)
	records.GET("/:id", recordHandler.Detail)
	records.GET("/:id/history", recordHandler.History)
	records.PUT("/stock", recordHandler.UpdateStock)
	records.PUT("/price", recordHandler.UpdatePrice)
	records.PUT("/monitoring", recordHandler.ToggleMonitoring)

	v1.GET("/stats", recordHandler.Stats)

	return router
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		requestID := uuid.New().String()
		c.Header("X-Request-ID", requestID)

		c.Next()

		log.Info("HTTP request",
			logger.String("request_id", requestID),
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status_code", c.Writer.Status()),
			logger.String("client_ip", c.ClientIP()),
			logger.Duration("duration", time.Since(start)),
		)
	}
}
