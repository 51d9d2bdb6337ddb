package admin

import (
	"parkly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupAdminRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	admin := rg.Group("/admin")
	admin.Use(auth, middleware.RequireAdmin())
	{
		admin.POST("/cleanup", controller.Cleanup)
		admin.GET("/job-status", controller.JobStatus)

		logs := admin.Group("/logs")
		{
			logs.GET("/website", controller.WebsiteLogs)
			logs.GET("/jobs", controller.JobLogs)
		}
	}
}
