package payments

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

// CreateOrder handles POST /api/v1/payments/create-order
func (c *Controller) CreateOrder(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindingError(ctx, err)
		return
	}

	order, err := c.service.CreatePaymentOrder(ctx.Request.Context(), req.BookingID, userID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.Created(ctx, "Payment order created", order)
}

// Verify handles POST /api/v1/payments/verify
func (c *Controller) Verify(ctx *gin.Context) {
	var req VerifyPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindingError(ctx, err)
		return
	}

	result, err := c.service.VerifyPayment(ctx.Request.Context(), &req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Payment verified successfully", result)
}

// Failure handles POST /api/v1/payments/failure
func (c *Controller) Failure(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req PaymentFailureRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindingError(ctx, err)
		return
	}

	if err := c.service.HandlePaymentFailure(ctx.Request.Context(), req.OrderID, req.Reason, userID); err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Payment failure recorded, you may retry before the hold expires", nil)
}

// History handles GET /api/v1/payments/history?period=30|all
func (c *Controller) History(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var query HistoryQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondBindingError(ctx, err)
		return
	}

	payments, err := c.service.History(ctx.Request.Context(), userID, query.Period)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Payment history retrieved successfully", payments)
}

// GetPayment handles GET /api/v1/payments/:id
func (c *Controller) GetPayment(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, apperrors.Validation("Invalid payment ID", nil))
		return
	}

	payment, err := c.service.GetForOwner(ctx.Request.Context(), id, userID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Payment retrieved successfully", payment)
}
