package analytics

import (
	"parkly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupStatisticsRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	statistics := rg.Group("/statistics")
	statistics.Use(auth)
	{
		statistics.GET("/user-stats", controller.GetUserStats)
		statistics.GET("/admin-stats", middleware.RequireAdmin(), controller.GetAdminStats)
	}
}
