package reservations

import (
	"time"

	"parkly/internal/cars"
	"parkly/internal/spaces"
	"parkly/internal/users"

	"github.com/google/uuid"
)

// Reservation is an exclusive claim on one parking space for [StartTime, EndTime).
// Rows are never deleted; terminal states stay for audit and payment history.
type Reservation struct {
	ID                uuid.UUID     `json:"id" gorm:"primaryKey;type:uuid;default:uuid_generate_v4()"`
	UserID            uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;index"`
	SpaceID           uuid.UUID     `json:"space_id" gorm:"type:uuid;not null"`
	CarID             uuid.UUID     `json:"car_id" gorm:"type:uuid;not null;index"`
	StartTime         time.Time     `json:"start_time" gorm:"not null"`
	EndTime           time.Time     `json:"end_time" gorm:"not null;index"`
	Status            Status        `json:"status" gorm:"type:varchar(20);not null;default:'pending_payment';index"`
	PaymentStatus     PaymentStatus `json:"payment_status" gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentHoldExpiry *time.Time    `json:"payment_hold_expiry,omitempty"`
	TotalAmount       float64       `json:"total_amount" gorm:"type:numeric(10,2);not null"`
	CancelledAt       *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`

	User  *users.User          `json:"-" gorm:"foreignKey:UserID"`
	Space *spaces.ParkingSpace `json:"space,omitempty" gorm:"foreignKey:SpaceID"`
	Car   *cars.Car            `json:"car,omitempty" gorm:"foreignKey:CarID"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// Overlaps applies the half-open interval test against [start, end)
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && r.EndTime.After(start)
}

// HoldExpired reports whether an unpaid hold has lapsed at now
func (r *Reservation) HoldExpired(now time.Time) bool {
	return r.Status == StatusPendingPayment && r.PaymentHoldExpiry != nil && r.PaymentHoldExpiry.Before(now)
}

// Transition is a conditional write: it applies only while the row is still in one of From.
// An empty To leaves the status unchanged.
type Transition struct {
	From    []Status
	To      Status
	Updates map[string]interface{}

	// HoldLapsedBefore, when set, also requires payment_hold_expiry < HoldLapsedBefore
	HoldLapsedBefore time.Time
}
