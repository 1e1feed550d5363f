package router

import "github.com/gin-gonic/gin"

func (r *Router) contactRoutes(api *gin.RouterGroup) {
	contacts := api.Group("/contacts")
	{
		// All contact routes require a valid, non-revoked bearer token
		contacts.Use(r.jwtMw.RequireAuth())
		{
			contacts.POST("", r.contactHandler.Create)
			contacts.GET("", r.contactHandler.List)
			contacts.PUT("/:id", r.contactHandler.Update)
			contacts.DELETE("/:id", r.contactHandler.Delete)

			// Bulk import/export
			contacts.POST("/upload", r.contactHandler.Upload)
			contacts.GET("/download", r.contactHandler.Download)
		}
	}
}
