package tickets

import "github.com/google/uuid"

type GenerateTicketRequest struct {
	BookingID uuid.UUID `json:"bookingId" binding:"required"`
}

type ValidateTicketRequest struct {
	QRToken string `json:"qrToken" binding:"required"`
}
