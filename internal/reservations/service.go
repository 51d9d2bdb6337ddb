package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parkly/internal/cars"
	"parkly/internal/notifications"
	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/constants"
	"parkly/internal/shared/txn"
	"parkly/internal/spaces"
	"parkly/pkg/logger"

	"github.com/google/uuid"
)

// CarLookup resolves a vehicle the owner may book with
type CarLookup interface {
	GetOwnedActive(ctx context.Context, ownerID, carID uuid.UUID) (*cars.Car, error)
}

// SpaceLocker row-locks a space so overlap check and insert see a stable view
type SpaceLocker interface {
	LockForUpdate(ctx context.Context, id uuid.UUID) (*spaces.ParkingSpace, error)
}

// AvailabilityInvalidator drops cached availability after status writes
type AvailabilityInvalidator interface {
	InvalidateAvailability(ctx context.Context)
}

// CredentialRevoker cancels a reservation's still-active ticket
type CredentialRevoker interface {
	RevokeForReservation(ctx context.Context, reservationID uuid.UUID) error
}

type Service interface {
	CreateReservation(ctx context.Context, ownerID uuid.UUID, req *CreateReservationRequest) (*Reservation, error)
	CancelReservation(ctx context.Context, id, ownerID uuid.UUID) (*Reservation, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Reservation, error)
	GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*Reservation, error)
	CalculateAmount(start, end time.Time) (*AmountQuote, error)
	CountHoldingByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type Dependencies struct {
	Repo         Repository
	Spaces       SpaceLocker
	Availability AvailabilityInvalidator
	Cars         CarLookup
	Credentials  CredentialRevoker
	Transactor   txn.Transactor
	Publisher    notifications.Publisher
	Pricing      Pricing
	HoldWindow   time.Duration
	Logger       *logger.Logger

	// Now defaults to time.Now
	Now func() time.Time
}

type service struct {
	Dependencies
}

func NewService(deps Dependencies) Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Publisher == nil {
		deps.Publisher = notifications.NoopPublisher{}
	}
	return &service{Dependencies: deps}
}

func (s *service) CreateReservation(ctx context.Context, ownerID uuid.UUID, req *CreateReservationRequest) (*Reservation, error) {
	start, end := req.StartTime.UTC(), req.EndTime.UTC()
	if !end.After(start) {
		return nil, apperrors.Validation("End time must be after start time", nil)
	}
	now := s.Now().UTC()
	if !end.After(now) {
		return nil, apperrors.Validation("Booking window has already ended", nil)
	}

	if _, err := s.Cars.GetOwnedActive(ctx, ownerID, req.CarID); err != nil {
		return nil, err
	}

	holdExpiry := now.Add(s.HoldWindow)
	reservation := &Reservation{
		ID:                uuid.New(),
		UserID:            ownerID,
		SpaceID:           req.SpaceID,
		CarID:             req.CarID,
		StartTime:         start,
		EndTime:           end,
		Status:            StatusPendingPayment,
		PaymentStatus:     PaymentPending,
		PaymentHoldExpiry: &holdExpiry,
		TotalAmount:       s.Pricing.Amount(start, end),
	}

	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		space, err := s.Spaces.LockForUpdate(ctx, req.SpaceID)
		if err != nil {
			if errors.Is(err, spaces.ErrSpaceNotFound) {
				return apperrors.NotFound("Parking space not found")
			}
			return fmt.Errorf("failed to lock space: %w", err)
		}
		if !space.IsActive {
			return apperrors.Validation("Parking space is not available for booking", nil)
		}

		overlapping, err := s.Repo.FindOverlapping(ctx, space.ID, start, end, HoldingStatuses)
		if err != nil {
			return fmt.Errorf("failed to check overlapping reservations: %w", err)
		}
		if len(overlapping) > 0 {
			return apperrors.Conflict("Parking space is not available for the selected window")
		}

		if err := s.Repo.Create(ctx, reservation); err != nil {
			if apperrors.IsConstraintConflict(err) {
				return apperrors.Conflict("Parking space is not available for the selected window")
			}
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Availability.InvalidateAvailability(ctx)
	s.Logger.LogReservationCreated(ctx, reservation.ID.String(), reservation.SpaceID.String(), ownerID.String(), reservation.TotalAmount)
	notifications.Emit(ctx, s.Publisher, s.Logger, notifications.NewEvent(
		constants.TopicReservationCreated, reservation.ID, ownerID, map[string]interface{}{
			"spaceId":     reservation.SpaceID.String(),
			"startTime":   reservation.StartTime,
			"endTime":     reservation.EndTime,
			"totalAmount": reservation.TotalAmount,
		}))

	return reservation, nil
}

func (s *service) CancelReservation(ctx context.Context, id, ownerID uuid.UUID) (*Reservation, error) {
	var cancelled *Reservation
	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		reservation, err := s.ownedForUpdate(ctx, id, ownerID)
		if err != nil {
			return err
		}
		if reservation.Status.IsTerminal() || !reservation.Status.CanTransitionTo(StatusCancelled) {
			return apperrors.InvalidState(fmt.Sprintf("Booking is already %s", reservation.Status))
		}

		now := s.Now().UTC()
		applied, err := s.Repo.Apply(ctx, id, Transition{
			From:    []Status{reservation.Status},
			To:      StatusCancelled,
			Updates: map[string]interface{}{"cancelled_at": now},
		})
		if err != nil {
			return fmt.Errorf("failed to cancel reservation: %w", err)
		}
		if !applied {
			return apperrors.InvalidState("Booking changed state, please retry")
		}

		if s.Credentials != nil {
			if err := s.Credentials.RevokeForReservation(ctx, id); err != nil {
				return fmt.Errorf("failed to revoke ticket: %w", err)
			}
		}

		reservation.Status = StatusCancelled
		reservation.CancelledAt = &now
		cancelled = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Availability.InvalidateAvailability(ctx)
	s.Logger.LogReservationCancelled(ctx, id.String(), ownerID.String())
	notifications.Emit(ctx, s.Publisher, s.Logger,
		notifications.NewEvent(constants.TopicReservationCancelled, id, ownerID, nil))

	return cancelled, nil
}

// ownedForUpdate hides reservations of other owners behind NotFound
func (s *service) ownedForUpdate(ctx context.Context, id, ownerID uuid.UUID) (*Reservation, error) {
	reservation, err := s.Repo.LockForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			return nil, apperrors.NotFound("Booking not found")
		}
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if reservation.UserID != ownerID {
		return nil, apperrors.NotFound("Booking not found")
	}
	return reservation, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Reservation, error) {
	reservations, err := s.Repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

func (s *service) GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*Reservation, error) {
	reservation, err := s.Repo.GetByIDWithRelations(ctx, id)
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			return nil, apperrors.NotFound("Booking not found")
		}
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if reservation.UserID != ownerID {
		return nil, apperrors.NotFound("Booking not found")
	}
	return reservation, nil
}

func (s *service) CalculateAmount(start, end time.Time) (*AmountQuote, error) {
	if !end.After(start) {
		return nil, apperrors.Validation("End time must be after start time", nil)
	}
	return &AmountQuote{
		Amount:             s.Pricing.Amount(start, end),
		Hours:              BillableHours(start, end),
		FirstHourRate:      s.Pricing.FirstHourRate,
		AdditionalHourRate: s.Pricing.AdditionalHourRate,
	}, nil
}

func (s *service) CountHoldingByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return s.Repo.CountHoldingByOwner(ctx, ownerID)
}
