package router

import (
	"github.com/altostack/contactvault/internal/middleware"
	"github.com/gin-gonic/gin"
)

func (r *Router) authRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	auth.Use(middleware.RateLimit(r.Config.RateLimit.Request, r.Config.RateLimit.Duration))
	{
		// Public routes (no authentication required)
		auth.POST("/register", r.authHandler.Register)
		auth.POST("/login", r.authHandler.Login)
		auth.POST("/refresh", r.authHandler.RefreshToken)
		auth.GET("/verify-email/:token", r.authHandler.VerifyEmail)
		auth.POST("/request-reset", r.authHandler.RequestPasswordReset)
		auth.POST("/reset-password", r.authHandler.ResetPassword)

		// Protected routes (JWT authentication required)
		protected := auth.Group("")
		protected.Use(r.jwtMw.RequireAuth())
		{
			protected.POST("/logout", r.authHandler.Logout)
		}
	}
}
