package cars

import (
	"net/http"

	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/middleware"
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

// AddCar handles POST /api/v1/cars
func (c *Controller) AddCar(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req CreateCarRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindingError(ctx, err)
		return
	}

	car, err := c.service.AddCar(ctx.Request.Context(), userID, &req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.Created(ctx, "Car added successfully", car)
}

// ListCars handles GET /api/v1/cars
func (c *Controller) ListCars(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	cars, err := c.service.ListCars(ctx.Request.Context(), userID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Cars retrieved successfully", cars)
}

// ListAvailable handles GET /api/v1/cars/available?startTime=&endTime=
func (c *Controller) ListAvailable(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var query AvailableCarsQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondBindingError(ctx, err)
		return
	}

	cars, err := c.service.ListAvailable(ctx.Request.Context(), userID, query.StartTime, query.EndTime)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Available cars retrieved successfully", cars)
}

// DeleteCar handles DELETE /api/v1/cars/:id
func (c *Controller) DeleteCar(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	carID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, apperrors.Validation("Invalid car ID", nil))
		return
	}

	if err := c.service.DeleteCar(ctx.Request.Context(), userID, carID); err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Car deleted successfully", nil)
}
