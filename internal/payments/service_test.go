package payments_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"parkly/internal/notifications"
	"parkly/internal/payments"
	"parkly/internal/payments/paymentstest"
	"parkly/internal/reservations"
	"parkly/internal/reservations/reservationstest"
	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/config"
	"parkly/internal/shared/constants"
	"parkly/internal/shared/txn/txntest"
	"parkly/internal/tickets"
	"parkly/internal/tickets/ticketstest"
	"parkly/pkg/logger"

	"github.com/google/uuid"
)

const testSecret = "sandbox-secret"

type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Topic == topic {
			n++
		}
	}
	return n
}

type failingGateway struct {
	payments.Gateway
}

func (failingGateway) CreateOrder(context.Context, payments.OrderRequest) (*payments.Order, error) {
	return nil, context.DeadlineExceeded
}

type harness struct {
	svc          payments.Service
	store        *paymentstest.Store
	reservations *reservationstest.Store
	tickets      *ticketstest.Store
	publisher    *recordingPublisher
	owner        uuid.UUID
	carID        uuid.UUID
	spaceID      uuid.UUID
	now          time.Time
}

func newHarness(t *testing.T, gateway payments.Gateway) *harness {
	t.Helper()
	fixtures := reservationstest.NewFixtures()
	user, car := fixtures.AddUser("meera", "nair")
	space := fixtures.AddSpace("A01")

	h := &harness{
		store:        paymentstest.NewStore(),
		reservations: reservationstest.NewStore(fixtures),
		tickets:      ticketstest.NewStore(),
		publisher:    &recordingPublisher{},
		owner:        user.ID,
		carID:        car.ID,
		spaceID:      space.ID,
		now:          time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }
	transactor := &txntest.Serial{}

	ticketCfg := config.TicketConfig{
		SigningSecret: "ticket-secret",
		Issuer:        "parking-system",
		Audience:      "ticket-scanner",
		TokenTTL:      24 * time.Hour,
		GracePeriod:   time.Hour,
		EntryWindow:   30 * time.Minute,
	}
	ticketSvc := tickets.NewService(tickets.Dependencies{
		Repo:         h.tickets,
		Reservations: h.reservations,
		Transactor:   transactor,
		Signer:       tickets.NewSigner(ticketCfg),
		Logger:       logger.NewNop(),
		Config:       ticketCfg,
		Now:          clock,
	})

	if gateway == nil {
		gateway = payments.NewSandboxGateway("rzp_test", testSecret)
	}
	h.svc = payments.NewService(payments.Dependencies{
		Repo:         h.store,
		Reservations: h.reservations,
		Tickets:      ticketSvc,
		Gateway:      gateway,
		Transactor:   transactor,
		Publisher:    h.publisher,
		Logger:       logger.NewNop(),
		Config:       config.PaymentConfig{Currency: "INR", GatewayTimeout: time.Second},
		HoldWindow:   5 * time.Minute,
		Now:          clock,
	})
	return h
}

func (h *harness) pendingReservation() uuid.UUID {
	id := uuid.New()
	hold := h.now.Add(5 * time.Minute)
	h.reservations.Put(reservations.Reservation{
		ID:                id,
		UserID:            h.owner,
		SpaceID:           h.spaceID,
		CarID:             h.carID,
		StartTime:         h.now.Add(2 * time.Hour),
		EndTime:           h.now.Add(3*time.Hour + 30*time.Minute),
		Status:            reservations.StatusPendingPayment,
		PaymentStatus:     reservations.PaymentPending,
		PaymentHoldExpiry: &hold,
		TotalAmount:       110,
	})
	return id
}

func (h *harness) verifyRequest(orderID, paymentID string) *payments.VerifyPaymentRequest {
	return &payments.VerifyPaymentRequest{
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: payments.Signature(testSecret, orderID, paymentID),
	}
}

func TestCreatePaymentOrder(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.pendingReservation()

	h.now = h.now.Add(3 * time.Minute)
	order, err := h.svc.CreatePaymentOrder(ctx, id, h.owner)
	if err != nil {
		t.Fatalf("CreatePaymentOrder: %v", err)
	}
	if order.Amount != 110 || order.Currency != "INR" || order.Provider != "sandbox" || order.KeyID != "rzp_test" {
		t.Errorf("order = %+v", order)
	}
	if !order.HoldExpiresAt.Equal(h.now.Add(5 * time.Minute)) {
		t.Errorf("hold expires at %v", order.HoldExpiresAt)
	}

	reservation, _ := h.reservations.Get(id)
	if reservation.Status != reservations.StatusPendingPayment || !reservation.PaymentHoldExpiry.Equal(order.HoldExpiresAt) {
		t.Errorf("reservation = %s hold %v", reservation.Status, reservation.PaymentHoldExpiry)
	}

	attempts := h.store.ForReservation(id)
	if len(attempts) != 1 || attempts[0].Status != payments.StatusPending || attempts[0].Amount != reservation.TotalAmount {
		t.Fatalf("payments = %+v", attempts)
	}
	if h.publisher.count(constants.TopicPaymentOrderCreated) != 1 {
		t.Error("order_created event not published")
	}
}

func TestCreatePaymentOrderRejects(t *testing.T) {
	ctx := context.Background()

	t.Run("stranger", func(t *testing.T) {
		h := newHarness(t, nil)
		if _, err := h.svc.CreatePaymentOrder(ctx, h.pendingReservation(), uuid.New()); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		h := newHarness(t, nil)
		if _, err := h.svc.CreatePaymentOrder(ctx, uuid.New(), h.owner); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("already cancelled", func(t *testing.T) {
		h := newHarness(t, nil)
		id := h.pendingReservation()
		r, _ := h.reservations.Get(id)
		r.Status = reservations.StatusCancelled
		h.reservations.Put(r)
		if _, err := h.svc.CreatePaymentOrder(ctx, id, h.owner); !errors.Is(err, apperrors.ErrInvalidState) {
			t.Fatalf("expected invalid state, got %v", err)
		}
	})

	t.Run("hold lapsed", func(t *testing.T) {
		h := newHarness(t, nil)
		id := h.pendingReservation()
		h.now = h.now.Add(6 * time.Minute)
		if _, err := h.svc.CreatePaymentOrder(ctx, id, h.owner); !errors.Is(err, apperrors.ErrExpired) {
			t.Fatalf("expected expired, got %v", err)
		}
	})

	t.Run("gateway down", func(t *testing.T) {
		h := newHarness(t, failingGateway{})
		id := h.pendingReservation()
		if _, err := h.svc.CreatePaymentOrder(ctx, id, h.owner); !errors.Is(err, apperrors.ErrUpstream) {
			t.Fatalf("expected upstream error, got %v", err)
		}
		if n := len(h.store.ForReservation(id)); n != 0 {
			t.Errorf("gateway failure stored %d payments", n)
		}
	})
}

func TestVerifyPayment(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.pendingReservation()
	order, err := h.svc.CreatePaymentOrder(ctx, id, h.owner)
	if err != nil {
		t.Fatalf("CreatePaymentOrder: %v", err)
	}

	result, err := h.svc.VerifyPayment(ctx, h.verifyRequest(order.OrderID, "pay_123"))
	if err != nil {
		t.Fatalf("VerifyPayment: %v", err)
	}

	if result.Payment.Status != payments.StatusCompleted {
		t.Errorf("payment = %s", result.Payment.Status)
	}
	reservation, _ := h.reservations.Get(id)
	if reservation.Status != reservations.StatusActive ||
		reservation.PaymentStatus != reservations.PaymentCompleted ||
		reservation.PaymentHoldExpiry != nil {
		t.Errorf("reservation = %s/%s hold %v", reservation.Status, reservation.PaymentStatus, reservation.PaymentHoldExpiry)
	}
	if result.Ticket == nil || result.Ticket.Status != tickets.StatusActive {
		t.Fatalf("ticket = %+v", result.Ticket)
	}

	stored := h.store.ForReservation(id)[0]
	if stored.GatewayPaymentID == nil || *stored.GatewayPaymentID != "pay_123" {
		t.Errorf("gateway payment id = %v", stored.GatewayPaymentID)
	}
}

func TestVerifyPaymentIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.pendingReservation()
	order, _ := h.svc.CreatePaymentOrder(ctx, id, h.owner)
	req := h.verifyRequest(order.OrderID, "pay_456")

	first, err := h.svc.VerifyPayment(ctx, req)
	if err != nil {
		t.Fatalf("first VerifyPayment: %v", err)
	}
	second, err := h.svc.VerifyPayment(ctx, req)
	if err != nil {
		t.Fatalf("second VerifyPayment: %v", err)
	}

	if first.Ticket.ID != second.Ticket.ID || first.Ticket.Token != second.Ticket.Token {
		t.Error("replayed verification returned a different ticket")
	}
	if h.tickets.Creates != 1 {
		t.Errorf("tickets minted = %d, want 1", h.tickets.Creates)
	}
	if n := h.publisher.count(constants.TopicPaymentCompleted); n != 1 {
		t.Errorf("payment.completed published %d times", n)
	}
	if n := len(h.store.ForReservation(id)); n != 1 {
		t.Errorf("payments = %d, want 1", n)
	}
}

func TestVerifyPaymentSignatureMismatch(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.pendingReservation()
	order, _ := h.svc.CreatePaymentOrder(ctx, id, h.owner)

	req := h.verifyRequest(order.OrderID, "pay_789")
	req.Signature = payments.Signature("wrong-secret", order.OrderID, "pay_789")

	if _, err := h.svc.VerifyPayment(ctx, req); !errors.Is(err, apperrors.ErrVerification) {
		t.Fatalf("expected verification error, got %v", err)
	}

	reservation, _ := h.reservations.Get(id)
	if reservation.Status != reservations.StatusPendingPayment {
		t.Errorf("reservation moved to %s", reservation.Status)
	}
	if h.store.ForReservation(id)[0].Status != payments.StatusPending {
		t.Error("payment changed after a forged callback")
	}
	if h.tickets.Creates != 0 {
		t.Error("ticket minted after a forged callback")
	}
}

func TestVerifyPaymentAfterHoldReleased(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.pendingReservation()
	order, _ := h.svc.CreatePaymentOrder(ctx, id, h.owner)

	r, _ := h.reservations.Get(id)
	r.Status = reservations.StatusCancelled
	r.PaymentStatus = reservations.PaymentExpired
	h.reservations.Put(r)

	_, err := h.svc.VerifyPayment(ctx, h.verifyRequest(order.OrderID, "pay_late"))
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}

	if h.store.ForReservation(id)[0].Status != payments.StatusCompleted {
		t.Error("captured payment should be recorded as completed")
	}
	if h.tickets.Creates != 0 {
		t.Error("no ticket may be minted for a released booking")
	}

	var refund bool
	for _, ev := range h.publisher.events {
		if ev.Topic == constants.TopicPaymentCompleted && ev.Data["requiresRefund"] == true {
			refund = true
		}
	}
	if !refund {
		t.Error("refund-required event not published")
	}
}

func TestPaymentFailureKeepsHold(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.pendingReservation()
	order, _ := h.svc.CreatePaymentOrder(ctx, id, h.owner)
	before, _ := h.reservations.Get(id)

	if err := h.svc.HandlePaymentFailure(ctx, order.OrderID, "card declined", uuid.New()); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("stranger failure: expected not found, got %v", err)
	}
	if err := h.svc.HandlePaymentFailure(ctx, order.OrderID, "card declined", h.owner); err != nil {
		t.Fatalf("HandlePaymentFailure: %v", err)
	}

	payment := h.store.ForReservation(id)[0]
	if payment.Status != payments.StatusFailed || payment.FailureReason == nil || *payment.FailureReason != "card declined" {
		t.Errorf("payment = %s reason %v", payment.Status, payment.FailureReason)
	}
	after, _ := h.reservations.Get(id)
	if after.Status != reservations.StatusPendingPayment || after.PaymentStatus != reservations.PaymentFailed {
		t.Errorf("reservation = %s/%s", after.Status, after.PaymentStatus)
	}
	if !after.PaymentHoldExpiry.Equal(*before.PaymentHoldExpiry) {
		t.Error("failure must not move the hold")
	}

	if err := h.svc.HandlePaymentFailure(ctx, order.OrderID, "again", h.owner); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("second failure: expected invalid state, got %v", err)
	}

	// retry within the hold
	h.now = h.now.Add(time.Minute)
	retry, err := h.svc.CreatePaymentOrder(ctx, id, h.owner)
	if err != nil {
		t.Fatalf("retry order: %v", err)
	}
	retried, _ := h.reservations.Get(id)
	if retried.PaymentStatus != reservations.PaymentPending {
		t.Errorf("retry left payment status %s", retried.PaymentStatus)
	}
	if _, err := h.svc.VerifyPayment(ctx, h.verifyRequest(retry.OrderID, "pay_retry")); err != nil {
		t.Fatalf("verify retry: %v", err)
	}
	if n := len(h.store.ForReservation(id)); n != 2 {
		t.Errorf("payment attempts = %d, want 2", n)
	}
}

func TestVerifyPaymentAfterRecordedFailure(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.pendingReservation()
	order, err := h.svc.CreatePaymentOrder(ctx, id, h.owner)
	if err != nil {
		t.Fatalf("CreatePaymentOrder: %v", err)
	}
	if err := h.svc.HandlePaymentFailure(ctx, order.OrderID, "bank timeout", h.owner); err != nil {
		t.Fatalf("HandlePaymentFailure: %v", err)
	}

	// the gateway captures the same order on its own retry
	result, err := h.svc.VerifyPayment(ctx, h.verifyRequest(order.OrderID, "pay_gateway_retry"))
	if err != nil {
		t.Fatalf("VerifyPayment: %v", err)
	}

	payment := h.store.ForReservation(id)[0]
	if payment.Status != payments.StatusCompleted || payment.FailureReason != nil {
		t.Errorf("payment = %s reason %v", payment.Status, payment.FailureReason)
	}
	reservation, _ := h.reservations.Get(id)
	if reservation.Status != reservations.StatusActive || reservation.PaymentStatus != reservations.PaymentCompleted {
		t.Errorf("reservation = %s/%s", reservation.Status, reservation.PaymentStatus)
	}
	if result.Ticket == nil || h.tickets.Creates != 1 {
		t.Errorf("ticket = %+v, minted %d", result.Ticket, h.tickets.Creates)
	}
	if n := h.publisher.count(constants.TopicPaymentCompleted); n != 1 {
		t.Errorf("payment.completed published %d times", n)
	}
}

func TestHistory(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.store.Put(payments.Payment{ID: uuid.New(), UserID: h.owner, OrderID: "old", CreatedAt: h.now.AddDate(0, 0, -45)})
	h.store.Put(payments.Payment{ID: uuid.New(), UserID: h.owner, OrderID: "recent", CreatedAt: h.now.AddDate(0, 0, -2)})
	h.store.Put(payments.Payment{ID: uuid.New(), UserID: uuid.New(), OrderID: "other", CreatedAt: h.now})

	tests := []struct {
		period string
		want   []string
	}{
		{"30", []string{"recent"}},
		{"all", []string{"recent", "old"}},
		{"", []string{"recent", "old"}},
	}
	for _, tt := range tests {
		got, err := h.svc.History(ctx, h.owner, tt.period)
		if err != nil {
			t.Fatalf("History(%q): %v", tt.period, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("History(%q) returned %d rows, want %d", tt.period, len(got), len(tt.want))
		}
		for i := range got {
			if got[i].OrderID != tt.want[i] {
				t.Errorf("History(%q)[%d] = %s, want %s", tt.period, i, got[i].OrderID, tt.want[i])
			}
		}
	}

	if _, err := h.svc.History(ctx, h.owner, "7"); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("bad period: expected validation error, got %v", err)
	}
}
