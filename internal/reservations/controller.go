package reservations

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

// CreateBooking handles POST /api/v1/bookings
func (c *Controller) CreateBooking(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req CreateReservationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindingError(ctx, err)
		return
	}

	reservation, err := c.service.CreateReservation(ctx.Request.Context(), userID, &req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.Created(ctx, "Booking created, complete payment to confirm", reservation)
}

// ListBookings handles GET /api/v1/bookings
func (c *Controller) ListBookings(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	reservations, err := c.service.ListByOwner(ctx.Request.Context(), userID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Bookings retrieved successfully", reservations)
}

// GetBooking handles GET /api/v1/bookings/:id
func (c *Controller) GetBooking(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, apperrors.Validation("Invalid booking ID", nil))
		return
	}

	reservation, err := c.service.GetForOwner(ctx.Request.Context(), id, userID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Booking retrieved successfully", reservation)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
func (c *Controller) CancelBooking(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, apperrors.Validation("Invalid booking ID", nil))
		return
	}

	reservation, err := c.service.CancelReservation(ctx.Request.Context(), id, userID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Booking cancelled successfully", reservation)
}

// CalculateAmount handles POST /api/v1/bookings/calculate-amount
func (c *Controller) CalculateAmount(ctx *gin.Context) {
	var req CalculateAmountRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindingError(ctx, err)
		return
	}

	quote, err := c.service.CalculateAmount(req.StartTime, req.EndTime)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Amount calculated successfully", quote)
}
