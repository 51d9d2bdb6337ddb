package payments

import (
	"time"

	"parkly/internal/reservations"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
)

// Payment is one attempt to pay for a reservation. Rows are financial history and never deleted.
type Payment struct {
	ID               uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid;default:uuid_generate_v4()"`
	UserID           uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	ReservationID    uuid.UUID  `json:"booking_id" gorm:"type:uuid;not null;index"`
	Provider         string     `json:"provider" gorm:"type:varchar(20);not null"`
	OrderID          string     `json:"order_id" gorm:"type:varchar(100);not null;uniqueIndex"`
	GatewayPaymentID *string    `json:"payment_id,omitempty" gorm:"type:varchar(100)"`
	Signature        *string    `json:"-" gorm:"type:varchar(255)"`
	Amount           float64    `json:"amount" gorm:"type:numeric(10,2);not null"`
	Currency         string     `json:"currency" gorm:"type:varchar(3);not null;default:'INR'"`
	Status           Status     `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	FailureReason    *string    `json:"failure_reason,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Reservation *reservations.Reservation `json:"booking,omitempty" gorm:"foreignKey:ReservationID"`
}

func (Payment) TableName() string {
	return "payments"
}
