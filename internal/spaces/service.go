package spaces

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/constants"
	"parkly/pkg/cache"
	"parkly/pkg/logger"

	"github.com/google/uuid"
)

type Service interface {
	Initialize(ctx context.Context) (*InitializeResponse, error)
	FindAvailable(ctx context.Context, from, to time.Time, floor int) ([]ParkingSpace, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ParkingSpace, error)
	ListAll(ctx context.Context) ([]ParkingSpace, error)

	// InvalidateAvailability drops cached searches after any reservation status write
	InvalidateAvailability(ctx context.Context)
}

type service struct {
	repo     Repository
	cache    cache.Service
	cacheTTL time.Duration
	log      *logger.Logger
}

func NewService(repo Repository, cacheService cache.Service, cacheTTL time.Duration, log *logger.Logger) Service {
	return &service{
		repo:     repo,
		cache:    cacheService,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// Initialize seeds the default layout once. It is a no-op when any space exists.
func (s *service) Initialize(ctx context.Context) (*InitializeResponse, error) {
	existing, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count spaces: %w", err)
	}
	if existing > 0 {
		return &InitializeResponse{Created: 0, Total: existing}, nil
	}

	layout := DefaultLayout()
	if err := s.repo.CreateBatch(ctx, layout); err != nil {
		return nil, fmt.Errorf("failed to seed spaces: %w", err)
	}

	if err := s.cache.Delete(ctx, constants.CACHE_KEY_SPACES_ALL); err != nil {
		s.log.Warn("failed to drop cached inventory", "error", err.Error())
	}
	s.InvalidateAvailability(ctx)

	s.log.Info("parking spaces initialized", "created", len(layout))
	return &InitializeResponse{Created: len(layout), Total: int64(len(layout))}, nil
}

func (s *service) FindAvailable(ctx context.Context, from, to time.Time, floor int) ([]ParkingSpace, error) {
	if !to.After(from) {
		return nil, apperrors.Validation("End time must be after start time", nil)
	}

	key := constants.BuildAvailableSpacesKey(from, to, floor)
	var spaces []ParkingSpace
	err := s.cache.GetOrSet(ctx, key, s.cacheTTL, func() (interface{}, error) {
		return s.repo.FindAvailable(ctx, from, to, floor)
	}, &spaces)
	if err != nil {
		return nil, fmt.Errorf("failed to find available spaces: %w", err)
	}
	if spaces == nil {
		spaces = []ParkingSpace{}
	}
	return spaces, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*ParkingSpace, error) {
	space, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSpaceNotFound) {
			return nil, apperrors.NotFound("Parking space not found")
		}
		return nil, fmt.Errorf("failed to load space: %w", err)
	}
	return space, nil
}

func (s *service) ListAll(ctx context.Context) ([]ParkingSpace, error) {
	var spaces []ParkingSpace
	err := s.cache.GetOrSet(ctx, constants.CACHE_KEY_SPACES_ALL, constants.TTL_SPACES_ALL, func() (interface{}, error) {
		return s.repo.ListAll(ctx)
	}, &spaces)
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	return spaces, nil
}

func (s *service) InvalidateAvailability(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, constants.AvailableSpacesPattern()); err != nil {
		s.log.Warn("failed to invalidate availability cache", "error", err.Error())
	}
}
