package reservations

import (
	"math"
	"time"
)

// Pricing charges a flat first hour plus a rate for every further started hour
type Pricing struct {
	FirstHourRate      float64
	AdditionalHourRate float64
}

// BillableHours rounds the window up to whole hours, with a minimum of one
func BillableHours(start, end time.Time) int {
	hours := int(math.Ceil(end.Sub(start).Hours()))
	if hours < 1 {
		return 1
	}
	return hours
}

// Amount is the server-side price of [start, end)
func (p Pricing) Amount(start, end time.Time) float64 {
	hours := BillableHours(start, end)
	if hours <= 1 {
		return p.FirstHourRate
	}
	return p.FirstHourRate + float64(hours-1)*p.AdditionalHourRate
}
