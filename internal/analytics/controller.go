package analytics

import (
	"net/http"

	"parkly/internal/shared/middleware"
	"parkly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

func (c *Controller) GetUserStats(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	stats, err := c.service.GetUserStats(ctx.Request.Context(), userID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "User statistics retrieved successfully", stats)
}

func (c *Controller) GetAdminStats(ctx *gin.Context) {
	stats, err := c.service.GetAdminStats(ctx.Request.Context())
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Admin statistics retrieved successfully", stats)
}
