package cars

import "time"

type CreateCarRequest struct {
	Make         string `json:"make" binding:"required,max=50"`
	Model        string `json:"model" binding:"required,max=50"`
	Year         int    `json:"year" binding:"required,min=1900,max=2100"`
	Color        string `json:"color" binding:"required,max=30"`
	LicensePlate string `json:"licensePlate" binding:"required,min=2,max=20"`
}

type AvailableCarsQuery struct {
	StartTime time.Time `form:"startTime" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	EndTime   time.Time `form:"endTime" binding:"required,gtfield=StartTime" time_format:"2006-01-02T15:04:05Z07:00"`
}
