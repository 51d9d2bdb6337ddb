package cars

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parkly/internal/shared/apperrors"

	"github.com/google/uuid"
)

type Service interface {
	AddCar(ctx context.Context, ownerID uuid.UUID, req *CreateCarRequest) (*Car, error)
	ListCars(ctx context.Context, ownerID uuid.UUID) ([]Car, error)
	ListAvailable(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]Car, error)
	DeleteCar(ctx context.Context, ownerID, carID uuid.UUID) error

	// GetOwnedActive returns the car only if it is active and belongs to ownerID
	GetOwnedActive(ctx context.Context, ownerID, carID uuid.UUID) (*Car, error)
}

type service struct {
	repo       Repository
	maxPerUser int
}

func NewService(repo Repository, maxPerUser int) Service {
	return &service{repo: repo, maxPerUser: maxPerUser}
}

func (s *service) AddCar(ctx context.Context, ownerID uuid.UUID, req *CreateCarRequest) (*Car, error) {
	count, err := s.repo.CountActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count cars: %w", err)
	}
	if count >= int64(s.maxPerUser) {
		return nil, apperrors.Validation(fmt.Sprintf("Maximum %d cars allowed per user", s.maxPerUser), nil)
	}

	car := &Car{
		ID:           uuid.New(),
		UserID:       ownerID,
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		Color:        req.Color,
		LicensePlate: NormalizePlate(req.LicensePlate),
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, car); err != nil {
		if apperrors.IsConstraintConflict(err) {
			return nil, apperrors.Conflict("A car with this license plate is already registered")
		}
		return nil, fmt.Errorf("failed to create car: %w", err)
	}
	return car, nil
}

func (s *service) ListCars(ctx context.Context, ownerID uuid.UUID) ([]Car, error) {
	cars, err := s.repo.ListActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}
	return cars, nil
}

func (s *service) ListAvailable(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]Car, error) {
	if !to.After(from) {
		return nil, apperrors.Validation("End time must be after start time", nil)
	}
	cars, err := s.repo.ListAvailable(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list available cars: %w", err)
	}
	return cars, nil
}

func (s *service) DeleteCar(ctx context.Context, ownerID, carID uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, carID, ownerID); err != nil {
		if errors.Is(err, ErrCarNotFound) {
			return apperrors.NotFound("Car not found")
		}
		return fmt.Errorf("failed to delete car: %w", err)
	}
	return nil
}

func (s *service) GetOwnedActive(ctx context.Context, ownerID, carID uuid.UUID) (*Car, error) {
	car, err := s.repo.GetByID(ctx, carID)
	if err != nil {
		if errors.Is(err, ErrCarNotFound) {
			return nil, apperrors.NotFound("Car not found")
		}
		return nil, fmt.Errorf("failed to load car: %w", err)
	}
	if car.UserID != ownerID || !car.IsActive {
		return nil, apperrors.NotFound("Car not found")
	}
	return car, nil
}
