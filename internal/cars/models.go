package cars

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Car struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:uuid_generate_v4()"`
	UserID       uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Make         string    `json:"make" gorm:"type:varchar(50);not null"`
	Model        string    `json:"model" gorm:"type:varchar(50);not null"`
	Year         int       `json:"year" gorm:"not null"`
	Color        string    `json:"color" gorm:"type:varchar(30);not null"`
	LicensePlate string    `json:"license_plate" gorm:"type:varchar(20);uniqueIndex;not null"`
	IsActive     bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Car) TableName() string {
	return "cars"
}

// Display is the gate-facing vehicle descriptor
func (c *Car) Display() string {
	return fmt.Sprintf("%s %s - %s", c.Make, c.Model, c.LicensePlate)
}

// NormalizePlate trims and upper-cases a licence plate
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}
