package auth

import "github.com/gin-gonic/gin"

// SetupAuthRoutes mounts /auth; auth guards the routes that need a signed-in user
func SetupAuthRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	group := rg.Group("/auth")
	group.POST("/register", controller.Register)
	group.POST("/login", controller.Login)
	group.POST("/refresh", controller.RefreshToken)
	group.POST("/logout", controller.Logout)

	group.PUT("/change-password", auth, controller.ChangePassword)
	group.GET("/me", auth, controller.GetMe)
}
