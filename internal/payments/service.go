package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"parkly/internal/notifications"
	"parkly/internal/reservations"
	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/config"
	"parkly/internal/shared/constants"
	"parkly/internal/shared/txn"
	"parkly/internal/tickets"
	"parkly/pkg/logger"

	"github.com/google/uuid"
)

// TicketIssuer mints the entry credential once a reservation is paid
type TicketIssuer interface {
	Issue(ctx context.Context, reservationID, ownerID uuid.UUID) (*tickets.Ticket, error)
}

type Service interface {
	CreatePaymentOrder(ctx context.Context, reservationID, ownerID uuid.UUID) (*OrderResponse, error)
	VerifyPayment(ctx context.Context, req *VerifyPaymentRequest) (*VerificationResult, error)
	HandlePaymentFailure(ctx context.Context, orderID, reason string, ownerID uuid.UUID) error
	History(ctx context.Context, ownerID uuid.UUID, period string) ([]Payment, error)
	GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*Payment, error)
}

type Dependencies struct {
	Repo         Repository
	Reservations reservations.Repository
	Tickets      TicketIssuer
	Gateway      Gateway
	Transactor   txn.Transactor
	Publisher    notifications.Publisher
	Logger       *logger.Logger
	Config       config.PaymentConfig
	HoldWindow   time.Duration

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

func (s *service) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Config.GatewayTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Config.GatewayTimeout)
}

func (s *service) CreatePaymentOrder(ctx context.Context, reservationID, ownerID uuid.UUID) (*OrderResponse, error) {
	reservation, err := s.Reservations.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, reservations.ErrReservationNotFound) {
			return nil, apperrors.NotFound("Booking not found")
		}
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if reservation.UserID != ownerID {
		return nil, apperrors.NotFound("Booking not found")
	}
	if reservation.Status != reservations.StatusPendingPayment {
		return nil, apperrors.InvalidState(fmt.Sprintf("Booking is %s and cannot be paid", reservation.Status))
	}
	now := s.Now().UTC()
	if reservation.HoldExpired(now) {
		return nil, apperrors.Expired("Payment window has expired, please book again")
	}

	paymentID := uuid.New()
	gwCtx, cancel := s.gatewayContext(ctx)
	order, err := s.Gateway.CreateOrder(gwCtx, OrderRequest{
		Amount:         reservation.TotalAmount,
		Currency:       s.Config.Currency,
		Receipt:        "booking_" + strings.ReplaceAll(reservationID.String(), "-", ""),
		IdempotencyKey: paymentID.String(),
		Notes: map[string]string{
			"bookingId": reservationID.String(),
			"userId":    ownerID.String(),
		},
	})
	cancel()
	if err != nil {
		return nil, apperrors.Upstream("Payment gateway unavailable, please retry", err)
	}

	holdExpiry := now.Add(s.HoldWindow)
	payment := &Payment{
		ID:            paymentID,
		UserID:        ownerID,
		ReservationID: reservationID,
		Provider:      s.Gateway.Name(),
		OrderID:       order.ID,
		Amount:        reservation.TotalAmount,
		Currency:      s.Config.Currency,
		Status:        StatusPending,
		ExpiresAt:     &holdExpiry,
	}

	err = s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		held, err := s.Reservations.Apply(ctx, reservationID, reservations.Transition{
			From: []reservations.Status{reservations.StatusPendingPayment},
			Updates: map[string]interface{}{
				"payment_status":      reservations.PaymentPending,
				"payment_hold_expiry": holdExpiry,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to extend payment hold: %w", err)
		}
		if !held {
			return apperrors.InvalidState("Booking is no longer awaiting payment")
		}
		if err := s.Repo.Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notifications.Emit(ctx, s.Publisher, s.Logger, notifications.NewEvent(
		constants.TopicPaymentOrderCreated, reservationID, ownerID, map[string]interface{}{
			"orderId":  order.ID,
			"amount":   payment.Amount,
			"provider": payment.Provider,
		}))

	return &OrderResponse{
		OrderID:       order.ID,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		KeyID:         s.Gateway.PublicKey(),
		ClientSecret:  order.ClientSecret,
		Provider:      payment.Provider,
		HoldExpiresAt: holdExpiry,
		PaymentID:     payment.ID,
	}, nil
}

func (s *service) VerifyPayment(ctx context.Context, req *VerifyPaymentRequest) (*VerificationResult, error) {
	gwCtx, cancel := s.gatewayContext(ctx)
	err := s.Gateway.VerifyPayment(gwCtx, req.OrderID, req.PaymentID, req.Signature)
	cancel()
	if err != nil {
		if errors.Is(err, ErrSignatureMismatch) {
			return nil, apperrors.Verification("Payment verification failed")
		}
		return nil, apperrors.Upstream("Payment gateway unavailable, please retry", err)
	}

	var (
		result   VerificationResult
		replay   bool
		orphaned bool
	)
	err = s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		payment, err := s.Repo.LockByOrderID(ctx, req.OrderID)
		if err != nil {
			if errors.Is(err, ErrPaymentNotFound) {
				return apperrors.NotFound("Payment record not found")
			}
			return fmt.Errorf("failed to load payment: %w", err)
		}

		reservation, err := s.Reservations.LockForUpdate(ctx, payment.ReservationID)
		if err != nil {
			return fmt.Errorf("failed to load reservation: %w", err)
		}

		switch payment.Status {
		case StatusCompleted:
			replay = true
		case StatusPending, StatusFailed:
			// a failed attempt can still be captured by a gateway-side retry on the same order
			if ok, err := s.Repo.Complete(ctx, payment.ID, req.PaymentID, req.Signature); err != nil {
				return fmt.Errorf("failed to complete payment: %w", err)
			} else if !ok {
				return apperrors.InvalidState("Payment changed state, please retry")
			}
			payment.Status = StatusCompleted
			payment.GatewayPaymentID = &req.PaymentID
			payment.FailureReason = nil

			activated, err := s.Reservations.Apply(ctx, reservation.ID, reservations.Transition{
				From: []reservations.Status{reservations.StatusPendingPayment},
				To:   reservations.StatusActive,
				Updates: map[string]interface{}{
					"payment_status":      reservations.PaymentCompleted,
					"payment_hold_expiry": nil,
				},
			})
			if err != nil {
				return fmt.Errorf("failed to activate reservation: %w", err)
			}
			if !activated {
				// money was taken for a booking the sweep already released
				orphaned = true
				result.Payment = payment
				result.Booking = reservation
				return nil
			}
			reservation.Status = reservations.StatusActive
			reservation.PaymentStatus = reservations.PaymentCompleted
			reservation.PaymentHoldExpiry = nil
		default:
			return apperrors.InvalidState(fmt.Sprintf("Payment is %s", payment.Status))
		}

		if reservation.Status != reservations.StatusActive && reservation.Status != reservations.StatusInProgress {
			result.Payment = payment
			result.Booking = reservation
			return nil
		}

		ticket, err := s.Tickets.Issue(ctx, reservation.ID, reservation.UserID)
		if err != nil {
			return err
		}
		result = VerificationResult{Payment: payment, Booking: reservation, Ticket: ticket}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reservationID := result.Booking.ID
	ownerID := result.Booking.UserID

	if orphaned {
		s.Logger.ErrorContext(ctx, "payment captured for a released booking, refund required",
			"order_id", req.OrderID, "reservation_id", reservationID.String(),
			"reservation_status", result.Booking.Status.String())
		notifications.Emit(ctx, s.Publisher, s.Logger, notifications.NewEvent(
			constants.TopicPaymentCompleted, reservationID, ownerID, map[string]interface{}{
				"orderId":        req.OrderID,
				"amount":         result.Payment.Amount,
				"requiresRefund": true,
			}))
		return nil, apperrors.InvalidState("Booking expired before the payment was confirmed; the payment will be refunded")
	}

	s.Logger.LogPaymentVerified(ctx, reservationID.String(), req.OrderID, replay)
	if !replay {
		notifications.Emit(ctx, s.Publisher, s.Logger, notifications.NewEvent(
			constants.TopicPaymentCompleted, reservationID, ownerID, map[string]interface{}{
				"orderId": req.OrderID,
				"amount":  result.Payment.Amount,
			}))
	}
	return &result, nil
}

func (s *service) HandlePaymentFailure(ctx context.Context, orderID, reason string, ownerID uuid.UUID) error {
	if reason == "" {
		reason = "Payment failed"
	}

	var payment *Payment
	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.Repo.LockByOrderID(ctx, orderID)
		if err != nil {
			if errors.Is(err, ErrPaymentNotFound) {
				return apperrors.NotFound("Payment record not found")
			}
			return fmt.Errorf("failed to load payment: %w", err)
		}
		if payment.UserID != ownerID {
			return apperrors.NotFound("Payment record not found")
		}

		failed, err := s.Repo.Fail(ctx, payment.ID, reason)
		if err != nil {
			return fmt.Errorf("failed to record payment failure: %w", err)
		}
		if !failed {
			return apperrors.InvalidState(fmt.Sprintf("Payment is %s", payment.Status))
		}

		// the reservation keeps its hold so the owner can retry until it lapses
		if _, err := s.Reservations.Apply(ctx, payment.ReservationID, reservations.Transition{
			From:    []reservations.Status{reservations.StatusPendingPayment},
			Updates: map[string]interface{}{"payment_status": reservations.PaymentFailed},
		}); err != nil {
			return fmt.Errorf("failed to mark reservation payment failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.InfoContext(ctx, "payment failed",
		"order_id", orderID, "reservation_id", payment.ReservationID.String(), "reason", reason)
	notifications.Emit(ctx, s.Publisher, s.Logger, notifications.NewEvent(
		constants.TopicPaymentFailed, payment.ReservationID, payment.UserID, map[string]interface{}{
			"orderId": orderID,
			"reason":  reason,
		}))
	return nil
}

func (s *service) History(ctx context.Context, ownerID uuid.UUID, period string) ([]Payment, error) {
	var since *time.Time
	switch period {
	case "", "all":
	case "30":
		t := s.Now().UTC().AddDate(0, 0, -30)
		since = &t
	default:
		return nil, apperrors.Validation("period must be 30 or all", nil)
	}

	payments, err := s.Repo.ListByOwner(ctx, ownerID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (s *service) GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*Payment, error) {
	payment, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil, apperrors.NotFound("Payment not found")
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if payment.UserID != ownerID {
		return nil, apperrors.NotFound("Payment not found")
	}
	return payment, nil
}
