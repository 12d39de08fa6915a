package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/coverbridge/coverbridge-backend/internal/handlers"
	"github.com/coverbridge/coverbridge-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler     *handlers.AuthHandler
	AuthMiddleware  *middleware.AuthMiddleware
	PolicyHandler   *handlers.PolicyHandler
	CustomerHandler *handlers.CustomerHandler
	AllowOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("coverbridge-backend"))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/api/register", cfg.AuthHandler.Register)
	router.POST("/api/login", cfg.AuthHandler.Login)
	router.POST("/api/refresh", cfg.AuthHandler.Refresh)

	// Protected
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	api.POST("/logout", cfg.AuthHandler.Logout)

	api.POST("/policy-documents/extract", cfg.PolicyHandler.ExtractDocument)
	api.POST("/policies/sync", cfg.PolicyHandler.SyncPolicy)
	api.GET("/policies/:id", cfg.PolicyHandler.GetPolicy)

	api.GET("/customers/:id", cfg.CustomerHandler.GetCustomer)
	api.GET("/customers/:id/policies", cfg.CustomerHandler.ListCustomerPolicies)
	api.GET("/customers/:id/timeline", cfg.CustomerHandler.ListCustomerTimeline)

	return router
}
