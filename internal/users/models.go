package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser    Role = "USER"
	RoleAdmin   Role = "ADMIN"
	RoleScanner Role = "SCANNER" // gate operators: may validate tickets only
)

type User struct {
	ID        uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid;default:uuid_generate_v4()"`
	FirstName string         `json:"first_name" gorm:"not null"`
	LastName  string         `json:"last_name" gorm:"not null"`
	Password  string         `json:"-" gorm:"not null"` // hide in json
	Role      Role           `json:"role" gorm:"type:varchar(20);not null;default:'USER'"`
	Email     string         `json:"email" gorm:"uniqueIndex;not null"`
	Phone     string         `json:"phone" gorm:"type:varchar(20)"`
	Address   string         `json:"address"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// FullName is what tickets and receipts print
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Settings holds per-user notification and booking preferences. One row per user.
type Settings struct {
	UserID uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`

	EmailNotifications bool `json:"email_notifications" gorm:"not null;default:true"`
	SMSNotifications   bool `json:"sms_notifications" gorm:"not null;default:false"`
	Reminders          bool `json:"reminders" gorm:"not null;default:true"`

	DefaultLocation string `json:"default_location"`
	PaymentMethod   string `json:"payment_method" gorm:"type:varchar(20);not null;default:'card'"`
	AutoExtend      bool   `json:"auto_extend" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Settings) TableName() string {
	return "user_settings"
}

// DefaultSettings is what a user gets before saving any preference
func DefaultSettings(userID uuid.UUID) Settings {
	return Settings{
		UserID:             userID,
		EmailNotifications: true,
		Reminders:          true,
		PaymentMethod:      "card",
	}
}

func IsValidRole(role string) bool {
	switch Role(role) {
	case RoleUser, RoleAdmin, RoleScanner:
		return true
	default:
		return false
	}
}
