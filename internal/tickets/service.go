package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parkly/internal/notifications"
	"parkly/internal/reservations"
	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/config"
	"parkly/internal/shared/constants"
	"parkly/internal/shared/txn"
	"parkly/pkg/logger"

	"github.com/google/uuid"
)

// errScanRaced aborts a scan whose conditional writes lost to a concurrent transition
var errScanRaced = errors.New("ticket changed during scan")

type Service interface {
	// Issue returns the reservation's ticket, minting it on first call
	Issue(ctx context.Context, reservationID, ownerID uuid.UUID) (*Ticket, error)
	Validate(ctx context.Context, token string) (*ValidationResult, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Ticket, error)
	RenderPDF(ctx context.Context, id, ownerID uuid.UUID) (*Ticket, []byte, error)
	RevokeForReservation(ctx context.Context, reservationID uuid.UUID) error
}

type Dependencies struct {
	Repo         Repository
	Reservations reservations.Repository
	Transactor   txn.Transactor
	Signer       *Signer
	Publisher    notifications.Publisher
	Logger       *logger.Logger
	Config       config.TicketConfig

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

func (s *service) Issue(ctx context.Context, reservationID, ownerID uuid.UUID) (*Ticket, error) {
	var (
		ticket *Ticket
		minted bool
	)
	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		// the reservation row lock serialises concurrent issuers
		reservation, err := s.Reservations.LockForUpdate(ctx, reservationID)
		if err != nil {
			if errors.Is(err, reservations.ErrReservationNotFound) {
				return apperrors.NotFound("Booking not found")
			}
			return fmt.Errorf("failed to load reservation: %w", err)
		}
		if reservation.UserID != ownerID {
			return apperrors.NotFound("Booking not found")
		}

		existing, err := s.Repo.GetByReservation(ctx, reservationID)
		if err == nil {
			ticket = existing
			return nil
		}
		if !errors.Is(err, ErrTicketNotFound) {
			return fmt.Errorf("failed to load ticket: %w", err)
		}

		if reservation.Status != reservations.StatusActive || reservation.PaymentStatus != reservations.PaymentCompleted {
			return apperrors.InvalidState("Valid booking not found or payment not completed")
		}

		now := s.Now().UTC()
		number, err := NewTicketNumber(now)
		if err != nil {
			return err
		}
		token, err := s.Signer.Sign(reservationID, ownerID, now)
		if err != nil {
			return fmt.Errorf("failed to sign ticket token: %w", err)
		}

		ticket = &Ticket{
			ID:            uuid.New(),
			ReservationID: reservationID,
			UserID:        ownerID,
			TicketNumber:  number,
			Token:         token,
			Status:        StatusActive,
			ExpiresAt:     reservation.StartTime.Add(s.Config.GracePeriod),
		}
		if err := s.Repo.Create(ctx, ticket); err != nil {
			if apperrors.IsConstraintConflict(err) {
				return apperrors.Conflict("Ticket already issued for this booking")
			}
			return fmt.Errorf("failed to create ticket: %w", err)
		}
		minted = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if minted {
		s.Logger.InfoContext(ctx, "ticket issued",
			"ticket_number", ticket.TicketNumber, "reservation_id", reservationID.String())
		notifications.Emit(ctx, s.Publisher, s.Logger, notifications.NewEvent(
			constants.TopicTicketIssued, reservationID, ownerID, map[string]interface{}{
				"ticketNumber": ticket.TicketNumber,
				"expiresAt":    ticket.ExpiresAt,
			}))
	}
	return s.withQR(ticket), nil
}

func (s *service) Validate(ctx context.Context, token string) (*ValidationResult, error) {
	now := s.Now().UTC()

	if _, err := s.Signer.Verify(token, now); err != nil {
		if errors.Is(err, errTokenExpired) {
			return rejected("Ticket has expired"), nil
		}
		return rejected("Invalid ticket format"), nil
	}

	ticket, err := s.Repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			return rejected("Invalid ticket"), nil
		}
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}

	if ticket.Status != StatusActive {
		return rejected(fmt.Sprintf("Ticket is %s", ticket.Status)), nil
	}

	if ticket.Expired(now) {
		if _, err := s.Repo.Transition(ctx, ticket.ID, StatusActive, StatusExpired); err != nil {
			return nil, fmt.Errorf("failed to expire ticket: %w", err)
		}
		return rejected("Ticket has expired"), nil
	}

	reservation, err := s.Reservations.GetByIDWithRelations(ctx, ticket.ReservationID)
	if err != nil {
		if errors.Is(err, reservations.ErrReservationNotFound) {
			return rejected("Booking is not valid"), nil
		}
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if reservation.Status != reservations.StatusActive || reservation.PaymentStatus != reservations.PaymentCompleted {
		return rejected("Booking is not valid"), nil
	}

	validFrom := reservation.StartTime.Add(-s.Config.EntryWindow)
	if now.Before(validFrom) {
		return rejected(fmt.Sprintf("Entry allowed from %s", validFrom.UTC().Format(time.RFC3339))), nil
	}

	err = s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		used, err := s.Repo.MarkUsed(ctx, ticket.ID, now)
		if err != nil {
			return fmt.Errorf("failed to mark ticket used: %w", err)
		}
		started, err := s.Reservations.Apply(ctx, reservation.ID, reservations.Transition{
			From: []reservations.Status{reservations.StatusActive},
			To:   reservations.StatusInProgress,
		})
		if err != nil {
			return fmt.Errorf("failed to start reservation: %w", err)
		}
		if !used || !started {
			return errScanRaced
		}
		return nil
	})
	if errors.Is(err, errScanRaced) {
		current, getErr := s.Repo.GetByID(ctx, ticket.ID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to reload ticket: %w", getErr)
		}
		if current.Status != StatusActive {
			return rejected(fmt.Sprintf("Ticket is %s", current.Status)), nil
		}
		return rejected("Booking is not valid"), nil
	}
	if err != nil {
		return nil, err
	}

	details := scanDetails(ticket, reservation)
	s.Logger.LogTicketScanned(ctx, ticket.TicketNumber, true, "Access granted")
	notifications.Emit(ctx, s.Publisher, s.Logger, notifications.NewEvent(
		constants.TopicTicketScanned, reservation.ID, reservation.UserID, map[string]interface{}{
			"ticketNumber": ticket.TicketNumber,
			"scannedAt":    now,
		}))

	return &ValidationResult{Valid: true, Message: "Access granted", Data: &details}, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Ticket, error) {
	tickets, err := s.Repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	for i := range tickets {
		s.withQR(&tickets[i])
	}
	return tickets, nil
}

func (s *service) RenderPDF(ctx context.Context, id, ownerID uuid.UUID) (*Ticket, []byte, error) {
	ticket, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			return nil, nil, apperrors.NotFound("Ticket not found")
		}
		return nil, nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	if ticket.UserID != ownerID {
		return nil, nil, apperrors.NotFound("Ticket not found")
	}

	reservation, err := s.Reservations.GetByIDWithRelations(ctx, ticket.ReservationID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load reservation: %w", err)
	}

	pdf, err := RenderPDF(ticket, scanDetails(ticket, reservation))
	if err != nil {
		return nil, nil, err
	}
	return ticket, pdf, nil
}

// RevokeForReservation cancels the reservation's ticket if it is still active
func (s *service) RevokeForReservation(ctx context.Context, reservationID uuid.UUID) error {
	if _, err := s.Repo.TransitionByReservation(ctx, reservationID, StatusActive, StatusCancelled); err != nil {
		return fmt.Errorf("failed to revoke ticket: %w", err)
	}
	return nil
}

func (s *service) withQR(ticket *Ticket) *Ticket {
	data, err := QRDataURL(ticket.Token)
	if err != nil {
		s.Logger.WarnContext(context.Background(), "qr render failed",
			"ticket_number", ticket.TicketNumber, "error", err.Error())
		return ticket
	}
	ticket.QRCodeData = data
	return ticket
}

func scanDetails(ticket *Ticket, reservation *reservations.Reservation) ScanDetails {
	details := ScanDetails{
		TicketNumber: ticket.TicketNumber,
		StartTime:    reservation.StartTime,
		EndTime:      reservation.EndTime,
	}
	if reservation.Space != nil {
		details.Space = reservation.Space.Display()
	}
	if reservation.Car != nil {
		details.Vehicle = reservation.Car.Display()
	}
	if reservation.User != nil {
		details.UserName = reservation.User.FullName()
	}
	return details
}
