package payments

import (
	"time"

	"parkly/internal/reservations"
	"parkly/internal/tickets"

	"github.com/google/uuid"
)

type CreateOrderRequest struct {
	BookingID uuid.UUID `json:"bookingId" binding:"required"`
}

// VerifyPaymentRequest is the gateway callback relayed by the client
type VerifyPaymentRequest struct {
	OrderID   string `json:"orderId" binding:"required"`
	PaymentID string `json:"paymentId" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type PaymentFailureRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	Reason  string `json:"reason" binding:"max=500"`
}

type HistoryQuery struct {
	Period string `form:"period" binding:"omitempty,oneof=30 all"`
}

type OrderResponse struct {
	OrderID       string    `json:"order_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	KeyID         string    `json:"key_id,omitempty"`
	ClientSecret  string    `json:"client_secret,omitempty"`
	Provider      string    `json:"provider"`
	HoldExpiresAt time.Time `json:"hold_expires_at"`
	PaymentID     uuid.UUID `json:"payment_id"`
}

type VerificationResult struct {
	Payment *Payment                  `json:"payment"`
	Booking *reservations.Reservation `json:"booking"`
	Ticket  *tickets.Ticket           `json:"ticket"`
}
