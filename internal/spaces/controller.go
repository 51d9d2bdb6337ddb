package spaces

import (
	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// GetAvailable handles GET /api/v1/spaces/available?startTime=&endTime=&floor=
func (c *Controller) GetAvailable(ctx *gin.Context) {
	var query AvailabilityQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondBindingError(ctx, err)
		return
	}

	spaces, err := c.service.FindAvailable(ctx.Request.Context(), query.StartTime, query.EndTime, query.Floor)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.OK(ctx, "Available spaces retrieved successfully", AvailabilityResponse{
		StartTime: query.StartTime.UTC(),
		EndTime:   query.EndTime.UTC(),
		Floor:     query.Floor,
		Count:     len(spaces),
		Spaces:    spaces,
	})
}

// GetAll handles GET /api/v1/spaces
func (c *Controller) GetAll(ctx *gin.Context) {
	spaces, err := c.service.ListAll(ctx.Request.Context())
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Parking spaces retrieved successfully", spaces)
}

// GetByID handles GET /api/v1/spaces/:id
func (c *Controller) GetByID(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, apperrors.Validation("Invalid space ID", nil))
		return
	}

	space, err := c.service.GetByID(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Parking space retrieved successfully", space)
}

// Initialize handles POST /api/v1/spaces/initialize (admin)
func (c *Controller) Initialize(ctx *gin.Context) {
	result, err := c.service.Initialize(ctx.Request.Context())
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	if result.Created == 0 {
		response.OK(ctx, "Parking spaces already initialized", result)
		return
	}
	response.Created(ctx, "Parking spaces initialized successfully", result)
}
