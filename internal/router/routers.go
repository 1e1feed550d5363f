package router

import (
	"github.com/altostack/contactvault/config"
	"github.com/altostack/contactvault/internal/handler"
	"github.com/altostack/contactvault/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Router struct {
	authHandler    *handler.AuthHandler
	contactHandler *handler.ContactHandler
	healthHandler  *handler.HealthHandler

	jwtMw  *middleware.JWTMiddleware
	Config *config.Config
}

func NewRouter(
	auth *handler.AuthHandler,
	contact *handler.ContactHandler,
	health *handler.HealthHandler,
	jwtMw *middleware.JWTMiddleware,
	config *config.Config,
) *Router {
	return &Router{
		authHandler:    auth,
		contactHandler: contact,
		healthHandler:  health,
		jwtMw:          jwtMw,
		Config:         config,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	if r.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RecoveryMiddleware(r.Config.App.Environment))
	router.Use(middleware.CORS())

	router.GET("/health", r.healthHandler.HealthCheck)

	api := router.Group("/api")
	{
		r.authRoutes(api)
		r.contactRoutes(api)
	}

	return router
}
