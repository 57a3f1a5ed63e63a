package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"vigil/app/handler"
	"vigil/app/middleware"
)

// Router Router
type Router struct {
	instanceHandler *handler.InstanceHandler
}

// NewRouter creates a new Router
func NewRouter(instanceHandler *handler.InstanceHandler) *Router {
	return &Router{
		instanceHandler: instanceHandler,
	}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	// Instance lifecycle reports
	instance := engine.Group("/instance")
	{
		instance.POST("/start", r.instanceHandler.Start)
		instance.POST("/alive", r.instanceHandler.Alive)
		instance.POST("/crash", r.instanceHandler.Crash)
		instance.POST("/stop", r.instanceHandler.Stop)
	}

	// Read-only views
	engine.GET("/instances", r.instanceHandler.List)
	engine.GET("/", r.instanceHandler.Dashboard)

	// Health check
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
}
