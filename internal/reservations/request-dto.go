package reservations

import (
	"time"

	"github.com/google/uuid"
)

type CreateReservationRequest struct {
	SpaceID   uuid.UUID `json:"spaceId" binding:"required"`
	CarID     uuid.UUID `json:"carId" binding:"required"`
	StartTime time.Time `json:"startTime" binding:"required"`
	EndTime   time.Time `json:"endTime" binding:"required,gtfield=StartTime"`

	// Accepted for client compatibility and ignored: the amount is always computed here
	TotalAmount *float64 `json:"totalAmount,omitempty"`
}

type CalculateAmountRequest struct {
	StartTime time.Time `json:"startTime" binding:"required"`
	EndTime   time.Time `json:"endTime" binding:"required,gtfield=StartTime"`
}

type AmountQuote struct {
	Amount             float64 `json:"amount"`
	Hours              int     `json:"hours"`
	FirstHourRate      float64 `json:"first_hour_rate"`
	AdditionalHourRate float64 `json:"additional_hour_rate"`
}
