package users

import "github.com/gin-gonic/gin"

// SetupUserRoutes mounts the profile routes; auth is the authenticated middleware chain
func SetupUserRoutes(rg *gin.RouterGroup, controller *Controller, auth ...gin.HandlerFunc) {
	users := rg.Group("/users")
	users.Use(auth...)
	{
		users.GET("/profile", controller.GetProfile)
		users.PUT("/profile", controller.UpdateProfile)
		users.PUT("/notifications", controller.UpdateNotifications)
		users.PUT("/preferences", controller.UpdatePreferences)
		users.DELETE("/account", controller.DeleteAccount)
	}
}
