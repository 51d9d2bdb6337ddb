package tickets

import (
	"fmt"
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

// GetMyTickets handles GET /api/v1/tickets/my-tickets
func (c *Controller) GetMyTickets(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	tickets, err := c.service.ListByOwner(ctx.Request.Context(), userID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Tickets retrieved successfully", tickets)
}

// GenerateTicket handles POST /api/v1/tickets/generate
func (c *Controller) GenerateTicket(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req GenerateTicketRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindingError(ctx, err)
		return
	}

	ticket, err := c.service.Issue(ctx.Request.Context(), req.BookingID, userID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, "Ticket generated successfully", ticket)
}

// ValidateTicket handles POST /api/v1/tickets/validate.
// A rejected scan still answers 200 with valid=false.
func (c *Controller) ValidateTicket(ctx *gin.Context) {
	var req ValidateTicketRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindingError(ctx, err)
		return
	}

	result, err := c.service.Validate(ctx.Request.Context(), req.QRToken)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.OK(ctx, result.Message, result)
}

// DownloadPDF handles GET /api/v1/tickets/:id/pdf
func (c *Controller) DownloadPDF(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, apperrors.Validation("Invalid ticket ID", nil))
		return
	}

	ticket, pdf, err := c.service.RenderPDF(ctx.Request.Context(), id, userID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, ticket.TicketNumber))
	ctx.Data(http.StatusOK, "application/pdf", pdf)
}
