package spaces

import "time"

// AvailabilityQuery binds GET /spaces/available
type AvailabilityQuery struct {
	StartTime time.Time `form:"startTime" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	EndTime   time.Time `form:"endTime" binding:"required,gtfield=StartTime" time_format:"2006-01-02T15:04:05Z07:00"`
	Floor     int       `form:"floor" binding:"omitempty,min=1,max=3"`
}

type AvailabilityResponse struct {
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Floor     int            `json:"floor,omitempty"`
	Count     int            `json:"count"`
	Spaces    []ParkingSpace `json:"spaces"`
}

type InitializeResponse struct {
	Created int   `json:"created"`
	Total   int64 `json:"total"`
}
