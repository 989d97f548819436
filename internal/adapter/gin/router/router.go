package router

import (
	"net/http"

	"user-registry-service/internal/adapter/gin/handler"
	"user-registry-service/internal/adapter/gin/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter configures and returns a Gin router with all routes and
// middleware. The auth gate guards every route except register, login, and
// the health check.
func SetupRouter(
	userHandler *handler.UserHandler,
	verifier middleware.TokenVerifier,
	rateLimiter *middleware.RateLimiter,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	if rateLimiter != nil {
		router.Use(rateLimiter.Middleware())
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "user-registry-service",
		})
	})

	users := router.Group("/users")
	{
		users.POST("/register", userHandler.Register)
		users.POST("/login", userHandler.Login)

		authed := users.Group("")
		authed.Use(middleware.AuthGate(verifier, log))
		{
			authed.GET("", userHandler.GetAll)
			authed.GET("/search", userHandler.SearchUsers)
			authed.GET("/:id", userHandler.GetUser)
			authed.PATCH("/:id", userHandler.UpdateUser)
			authed.DELETE("/:id", userHandler.DeleteUser)
			authed.PATCH("/addfriend/:id", userHandler.AddFriend)
			authed.PATCH("/addenemy/:id", userHandler.AddEnemy)
		}
	}

	return router
}
