package tickets

import (
	"time"

	"parkly/internal/reservations"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusUsed      Status = "used"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Ticket is the single scannable entry credential of a paid reservation
type Ticket struct {
	ID            uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid;default:uuid_generate_v4()"`
	ReservationID uuid.UUID  `json:"booking_id" gorm:"type:uuid;not null;uniqueIndex"`
	UserID        uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	TicketNumber  string     `json:"ticket_number" gorm:"type:varchar(40);not null;uniqueIndex"`
	Token         string     `json:"qr_token" gorm:"column:qr_token;type:text;not null;uniqueIndex"`
	Status        Status     `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	ScannedAt     *time.Time `json:"scanned_at,omitempty"`
	ExpiresAt     time.Time  `json:"expires_at" gorm:"not null;index"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// QRCodeData is rendered on read, never stored
	QRCodeData string `json:"qr_code_data,omitempty" gorm:"-"`

	Reservation *reservations.Reservation `json:"booking,omitempty" gorm:"foreignKey:ReservationID"`
}

func (Ticket) TableName() string {
	return "tickets"
}

// Expired reports whether the credential's own deadline has passed
func (t *Ticket) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// ScanDetails is what the gate sees after a successful scan
type ScanDetails struct {
	TicketNumber string    `json:"ticket_number"`
	Space        string    `json:"space"`
	Vehicle      string    `json:"vehicle"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	UserName     string    `json:"user_name"`
}

// ValidationResult is the outcome of a gate scan. A rejected scan is Valid=false, not an error.
type ValidationResult struct {
	Valid   bool         `json:"valid"`
	Message string       `json:"message"`
	Data    *ScanDetails `json:"data,omitempty"`
}

func rejected(message string) *ValidationResult {
	return &ValidationResult{Valid: false, Message: message}
}
