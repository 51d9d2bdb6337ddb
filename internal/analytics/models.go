package analytics

// UserStats summarises one user's parking history
type UserStats struct {
	TotalBookings     int64   `json:"totalBookings"`
	ActiveBookings    int64   `json:"activeBookings"`
	CompletedBookings int64   `json:"completedBookings"`
	CancelledBookings int64   `json:"cancelledBookings"`
	TotalCars         int64   `json:"totalCars"`
	TotalSpent        float64 `json:"totalSpent"`
	TotalHours        int64   `json:"totalHours"`
}

// AdminStats is the platform-wide dashboard. ActiveBookings counts active and in_progress
// reservations; OccupiedSpaces counts those holding a space right now.
type AdminStats struct {
	TotalUsers     int64   `json:"totalUsers"`
	TotalBookings  int64   `json:"totalBookings"`
	ActiveBookings int64   `json:"activeBookings"`
	TodayBookings  int64   `json:"todayBookings"`
	TotalPayments  int64   `json:"totalPayments"`
	TotalRevenue   float64 `json:"totalRevenue"`
	OccupiedSpaces int64   `json:"occupiedSpaces"`
	TotalSpaces    int     `json:"totalSpaces"`
	OccupancyRate  float64 `json:"occupancyRate"`
}
