package http

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/gin-gonic/gin"

	"github.com/layer-3/embedwallet/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, logger watermill.LoggerAdapter) *gin.Engine {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	handlers := NewAuthHandlers(authService)

	auth := router.Group("/auth")
	{
		auth.POST("/challenge", handlers.Challenge)
		auth.POST("/login", handlers.Login)
		auth.POST("/refresh", handlers.Refresh)
		auth.POST("/logout", handlers.Logout)
	}

	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", handlers.Me)
		api.GET("/authorize", handlers.Authorize)
	}

	return router
}

func requestLogger(logger watermill.LoggerAdapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debug("HTTP request", watermill.LogFields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		})
	}
}
