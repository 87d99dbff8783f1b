package api

import (
	"github.com/gin-gonic/gin"

	"github.com/queosk/queosk/internal/domain"
	"github.com/queosk/queosk/pkg/logger"
	"github.com/queosk/queosk/pkg/xresponse"
)

// SetupRoutes configures all API routes
func SetupRoutes(
	router *gin.Engine,
	queueHandler *QueueHandler,
	authService domain.AuthService,
) {
	router.Use(recoveryMiddleware(), corsMiddleware())
	router.NoRoute(func(c *gin.Context) {
		xresponse.NotFound(c, "Route not found")
	})

	guard := NewRoleGuard()

	v1 := router.Group("/api/v1")
	{
		configureUserQueueRoutes(v1, queueHandler, authService, guard)
		configureRestaurantQueueRoutes(v1, queueHandler, authService, guard)
		configurePublicRoutes(v1, queueHandler)
	}

	logger.Info("API routes configured successfully")
}

func configureUserQueueRoutes(group *gin.RouterGroup, h *QueueHandler, authService domain.AuthService, guard *RoleGuard) {
	restaurants := group.Group("/restaurants/:restaurantId/queue")
	restaurants.Use(authMiddleware(authService), guard.RequireRole(domain.RoleUser))
	{
		restaurants.POST("", h.CreateQueue)
		restaurants.GET("", h.GetUserQueueNumber)
		restaurants.DELETE("", h.DeleteUserQueue)
	}

	users := group.Group("/users/queues")
	users.Use(authMiddleware(authService), guard.RequireRole(domain.RoleUser))
	{
		users.GET("", h.GetUserQueueList)
	}
}

func configureRestaurantQueueRoutes(group *gin.RouterGroup, h *QueueHandler, authService domain.AuthService, guard *RoleGuard) {
	routes := group.Group("/restaurant/queue")
	routes.Use(authMiddleware(authService), guard.RequireRole(domain.RoleRestaurant))
	{
		routes.GET("", h.GetQueueList)
		routes.PUT("", h.PopTheFirstTeamOfQueue)
	}
}

func configurePublicRoutes(group *gin.RouterGroup, h *QueueHandler) {
	group.GET("/restaurants/:restaurantId/queue/summary", h.GetQueueOfRestaurant)

	public := group.Group("/public")
	{
		public.GET("/ping", func(c *gin.Context) {
			xresponse.Success(c, "pong", nil)
		})
	}
}
