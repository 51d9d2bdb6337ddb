package spaces

import "github.com/gin-gonic/gin"

// SetupSpaceRoutes mounts the inventory routes. Availability is public; seeding is admin-only.
func SetupSpaceRoutes(rg *gin.RouterGroup, controller *Controller, admin ...gin.HandlerFunc) {
	spaces := rg.Group("/spaces")
	{
		spaces.GET("", controller.GetAll)
		spaces.GET("/available", controller.GetAvailable)
		spaces.GET("/:id", controller.GetByID)
	}

	adminSpaces := rg.Group("/spaces")
	adminSpaces.Use(admin...)
	{
		adminSpaces.POST("/initialize", controller.Initialize)
	}
}
