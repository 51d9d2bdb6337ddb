package analytics

import (
	"context"
	"fmt"
	"time"

	"parkly/internal/payments"
	"parkly/internal/reservations"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// billedHoursSQL mirrors reservations.BillableHours: whole hours rounded up, at least one
const billedHoursSQL = "COALESCE(SUM(GREATEST(1, CEIL(EXTRACT(EPOCH FROM (end_time - start_time)) / 3600))), 0)"

type Repository interface {
	GetUserStats(ctx context.Context, userID uuid.UUID) (*UserStats, error)
	// GetAdminStats fills everything except the space total and occupancy rate
	GetAdminStats(ctx context.Context, now time.Time) (*AdminStats, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetUserStats(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	db := r.db.WithContext(ctx)
	var stats UserStats

	// One pass over the user's reservations
	var counts struct {
		Total     int64
		Active    int64
		Completed int64
		Cancelled int64
	}
	err := db.Table("reservations").
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status IN ?) AS active,
			COUNT(*) FILTER (WHERE status = ?) AS completed,
			COUNT(*) FILTER (WHERE status = ?) AS cancelled`,
			[]string{string(reservations.StatusActive), string(reservations.StatusInProgress)},
			reservations.StatusCompleted, reservations.StatusCancelled).
		Where("user_id = ?", userID).
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count reservations: %w", err)
	}
	stats.TotalBookings = counts.Total
	stats.ActiveBookings = counts.Active
	stats.CompletedBookings = counts.Completed
	stats.CancelledBookings = counts.Cancelled

	err = db.Table("cars").
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&stats.TotalCars).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count cars: %w", err)
	}

	err = db.Table("payments").
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND status = ?", userID, payments.StatusCompleted).
		Scan(&stats.TotalSpent).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum payments: %w", err)
	}

	err = db.Table("reservations").
		Select(billedHoursSQL).
		Where("user_id = ? AND status = ?", userID, reservations.StatusCompleted).
		Scan(&stats.TotalHours).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum hours: %w", err)
	}

	return &stats, nil
}

func (r *repository) GetAdminStats(ctx context.Context, now time.Time) (*AdminStats, error) {
	db := r.db.WithContext(ctx)
	var stats AdminStats
	now = now.UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if err := db.Table("users").Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	var counts struct {
		Total    int64
		Active   int64
		Today    int64
		Occupied int64
	}
	err := db.Table("reservations").
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status IN ?) AS active,
			COUNT(*) FILTER (WHERE created_at >= ?) AS today,
			COUNT(*) FILTER (WHERE status = ? OR (status = ? AND start_time <= ? AND end_time > ?)) AS occupied`,
			[]string{string(reservations.StatusActive), string(reservations.StatusInProgress)},
			startOfDay,
			reservations.StatusInProgress, reservations.StatusActive, now, now).
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count reservations: %w", err)
	}
	stats.TotalBookings = counts.Total
	stats.ActiveBookings = counts.Active
	stats.TodayBookings = counts.Today
	stats.OccupiedSpaces = counts.Occupied

	var revenue struct {
		Count int64
		Total float64
	}
	err = db.Table("payments").
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", payments.StatusCompleted).
		Scan(&revenue).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	stats.TotalPayments = revenue.Count
	stats.TotalRevenue = revenue.Total

	return &stats, nil
}
