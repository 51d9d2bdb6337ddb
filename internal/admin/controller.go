package admin

import (
	"parkly/internal/shared/utils/response"
	"parkly/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

func (c *Controller) Cleanup(ctx *gin.Context) {
	result, err := c.service.Cleanup(ctx.Request.Context())
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Cleanup completed", result)
}

func (c *Controller) JobStatus(ctx *gin.Context) {
	response.OK(ctx, "Job status retrieved successfully", c.service.JobStatus())
}

func (c *Controller) WebsiteLogs(ctx *gin.Context) {
	c.logs(ctx, logger.ChannelWebsite)
}

func (c *Controller) JobLogs(ctx *gin.Context) {
	c.logs(ctx, logger.ChannelJobs)
}

func (c *Controller) logs(ctx *gin.Context, channel string) {
	page, err := c.service.Logs(channel)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Logs retrieved successfully", page)
}
