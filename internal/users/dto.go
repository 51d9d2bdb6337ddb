package users

import "time"

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,min=2,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,min=2,max=100"`
	Phone     *string `json:"phone" binding:"omitempty,max=20"`
	Address   *string `json:"address" binding:"omitempty,max=255"`
}

type UpdateNotificationsRequest struct {
	Email     *bool `json:"email"`
	SMS       *bool `json:"sms"`
	Reminders *bool `json:"reminders"`
}

type UpdatePreferencesRequest struct {
	DefaultLocation *string `json:"default_location" binding:"omitempty,max=100"`
	PaymentMethod   *string `json:"payment_method" binding:"omitempty,oneof=card upi netbanking wallet"`
	AutoExtend      *bool   `json:"auto_extend"`
}

type ProfileResponse struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Role      string    `json:"role"`
	Settings  Settings  `json:"settings"`
	CreatedAt time.Time `json:"created_at"`
}
