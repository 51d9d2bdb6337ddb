package analytics

import (
	"context"
	"math"
	"time"

	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/constants"
	"parkly/pkg/cache"

	"github.com/google/uuid"
)

type Service interface {
	GetUserStats(ctx context.Context, userID uuid.UUID) (*UserStats, error)
	GetAdminStats(ctx context.Context) (*AdminStats, error)
}

type service struct {
	repo        Repository
	cache       cache.Service
	totalSpaces int
	now         func() time.Time
}

// NewService builds the statistics service. totalSpaces is the occupancy denominator.
func NewService(repo Repository, cacheService cache.Service, totalSpaces int) Service {
	return &service{repo: repo, cache: cacheService, totalSpaces: totalSpaces, now: time.Now}
}

func (s *service) GetUserStats(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	stats, err := s.repo.GetUserStats(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load statistics", err)
	}
	return stats, nil
}

// GetAdminStats is cached briefly; the dashboard polls it
func (s *service) GetAdminStats(ctx context.Context) (*AdminStats, error) {
	var stats AdminStats
	err := s.cache.GetOrSet(ctx, constants.CACHE_KEY_ADMIN_STATS, constants.TTL_ADMIN_STATS, func() (interface{}, error) {
		fresh, err := s.repo.GetAdminStats(ctx, s.now())
		if err != nil {
			return nil, err
		}
		fresh.TotalSpaces = s.totalSpaces
		fresh.OccupancyRate = occupancyRate(fresh.OccupiedSpaces, s.totalSpaces)
		return fresh, nil
	}, &stats)
	if err != nil {
		return nil, apperrors.Internal("Failed to load statistics", err)
	}
	return &stats, nil
}

// occupancyRate is a percentage rounded to two decimals
func occupancyRate(occupied int64, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(occupied)/float64(total)*100*100) / 100
}
