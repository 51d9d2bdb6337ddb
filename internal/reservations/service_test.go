package reservations_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"parkly/internal/cars"
	"parkly/internal/notifications"
	"parkly/internal/reservations"
	"parkly/internal/reservations/reservationstest"
	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/constants"
	"parkly/internal/shared/txn/txntest"
	"parkly/internal/spaces"
	"parkly/pkg/logger"

	"github.com/google/uuid"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, ev notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, ev.Topic)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingRevoker struct {
	revoked []uuid.UUID
}

func (r *recordingRevoker) RevokeForReservation(_ context.Context, id uuid.UUID) error {
	r.revoked = append(r.revoked, id)
	return nil
}

type harness struct {
	svc       reservations.Service
	store     *reservationstest.Store
	fixtures  *reservationstest.Fixtures
	publisher *recordingPublisher
	revoker   *recordingRevoker
	space     *spaces.ParkingSpace
	owner     uuid.UUID
	car       *cars.Car
	now       time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fixtures := reservationstest.NewFixtures()
	store := reservationstest.NewStore(fixtures)
	user, car := fixtures.AddUser("asha", "rao")

	h := &harness{
		store:     store,
		fixtures:  fixtures,
		publisher: &recordingPublisher{},
		revoker:   &recordingRevoker{},
		space:     fixtures.AddSpace("A01"),
		owner:     user.ID,
		car:       car,
		now:       time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
	}
	h.svc = reservations.NewService(reservations.Dependencies{
		Repo:         store,
		Spaces:       fixtures,
		Availability: fixtures,
		Cars:         fixtures,
		Credentials:  h.revoker,
		Transactor:   &txntest.Serial{},
		Publisher:    h.publisher,
		Pricing:      reservations.Pricing{FirstHourRate: 50, AdditionalHourRate: 60},
		HoldWindow:   5 * time.Minute,
		Logger:       logger.NewNop(),
		Now:          func() time.Time { return h.now },
	})
	return h
}

func (h *harness) request(start time.Time, d time.Duration) *reservations.CreateReservationRequest {
	return &reservations.CreateReservationRequest{
		SpaceID:   h.space.ID,
		CarID:     h.car.ID,
		StartTime: start,
		EndTime:   start.Add(d),
	}
}

func TestCreateReservationComputesAmountServerSide(t *testing.T) {
	h := newHarness(t)
	req := h.request(h.now.Add(2*time.Hour), 90*time.Minute)
	forged := 1.0
	req.TotalAmount = &forged

	res, err := h.svc.CreateReservation(context.Background(), h.owner, req)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	stored, _ := h.store.Get(res.ID)
	if stored.TotalAmount != 110 {
		t.Errorf("stored amount = %v, want 110", stored.TotalAmount)
	}
	if stored.Status != reservations.StatusPendingPayment || stored.PaymentStatus != reservations.PaymentPending {
		t.Errorf("new reservation = %s/%s", stored.Status, stored.PaymentStatus)
	}
	if stored.PaymentHoldExpiry == nil || !stored.PaymentHoldExpiry.Equal(h.now.Add(5*time.Minute)) {
		t.Errorf("hold expiry = %v", stored.PaymentHoldExpiry)
	}
	if h.fixtures.Invalidations != 1 {
		t.Errorf("availability invalidations = %d", h.fixtures.Invalidations)
	}
	if len(h.publisher.topics) != 1 || h.publisher.topics[0] != constants.TopicReservationCreated {
		t.Errorf("published %v", h.publisher.topics)
	}
}

func TestCreateReservationRejects(t *testing.T) {
	h := newHarness(t)
	start := h.now.Add(time.Hour)

	inactive := h.fixtures.AddSpace("B01")
	inactive.IsActive = false

	tests := []struct {
		name string
		req  *reservations.CreateReservationRequest
		want error
	}{
		{
			name: "end before start",
			req:  &reservations.CreateReservationRequest{SpaceID: h.space.ID, CarID: h.car.ID, StartTime: start, EndTime: start.Add(-time.Minute)},
			want: apperrors.ErrValidation,
		},
		{
			name: "empty window",
			req:  &reservations.CreateReservationRequest{SpaceID: h.space.ID, CarID: h.car.ID, StartTime: start, EndTime: start},
			want: apperrors.ErrValidation,
		},
		{
			name: "window in the past",
			req:  h.request(h.now.Add(-3*time.Hour), time.Hour),
			want: apperrors.ErrValidation,
		},
		{
			name: "unknown space",
			req:  &reservations.CreateReservationRequest{SpaceID: uuid.New(), CarID: h.car.ID, StartTime: start, EndTime: start.Add(time.Hour)},
			want: apperrors.ErrNotFound,
		},
		{
			name: "inactive space",
			req:  &reservations.CreateReservationRequest{SpaceID: inactive.ID, CarID: h.car.ID, StartTime: start, EndTime: start.Add(time.Hour)},
			want: apperrors.ErrValidation,
		},
		{
			name: "car of another user",
			req:  &reservations.CreateReservationRequest{SpaceID: h.space.ID, CarID: uuid.New(), StartTime: start, EndTime: start.Add(time.Hour)},
			want: apperrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.CreateReservation(context.Background(), h.owner, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if n := len(h.store.All()); n != 0 {
		t.Errorf("rejected requests stored %d rows", n)
	}
}

func TestCreateReservationOverlap(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	start := h.now.Add(2 * time.Hour)

	if _, err := h.svc.CreateReservation(ctx, h.owner, h.request(start, time.Hour)); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	_, err := h.svc.CreateReservation(ctx, h.owner, h.request(start.Add(30*time.Minute), time.Hour))
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("overlapping booking: expected conflict, got %v", err)
	}

	// back-to-back windows share only the boundary instant
	if _, err := h.svc.CreateReservation(ctx, h.owner, h.request(start.Add(time.Hour), time.Hour)); err != nil {
		t.Fatalf("adjacent booking: %v", err)
	}
	if _, err := h.svc.CreateReservation(ctx, h.owner, h.request(start.Add(-time.Hour), time.Hour)); err != nil {
		t.Fatalf("preceding booking: %v", err)
	}
}

func TestTerminalReservationsDoNotHoldTheSpace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	start := h.now.Add(2 * time.Hour)

	first, err := h.svc.CreateReservation(ctx, h.owner, h.request(start, time.Hour))
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if _, err := h.svc.CancelReservation(ctx, first.ID, h.owner); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := h.svc.CreateReservation(ctx, h.owner, h.request(start, time.Hour)); err != nil {
		t.Fatalf("rebooking a cancelled window: %v", err)
	}
}

func TestConcurrentCreatesExactlyOneWins(t *testing.T) {
	h := newHarness(t)
	start := h.now.Add(3 * time.Hour)

	const attempts = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(offset time.Duration) {
			defer wg.Done()
			_, err := h.svc.CreateReservation(context.Background(), h.owner, h.request(start.Add(offset), time.Hour))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperrors.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(time.Duration(i) * time.Minute)
	}
	wg.Wait()

	if succeeded != 1 || conflicts != attempts-1 {
		t.Fatalf("succeeded=%d conflicts=%d, want 1 and %d", succeeded, conflicts, attempts-1)
	}

	holding := 0
	for _, r := range h.store.All() {
		if r.Status.IsHolding() {
			holding++
		}
	}
	if holding != 1 {
		t.Fatalf("%d holding reservations on one window", holding)
	}
}

func TestCancelReservation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.CreateReservation(ctx, h.owner, h.request(h.now.Add(time.Hour), time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := h.svc.CancelReservation(ctx, res.ID, uuid.New()); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("stranger cancel: expected not found, got %v", err)
	}
	if _, err := h.svc.CancelReservation(ctx, uuid.New(), h.owner); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("missing cancel: expected not found, got %v", err)
	}

	cancelled, err := h.svc.CancelReservation(ctx, res.ID, h.owner)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != reservations.StatusCancelled || cancelled.CancelledAt == nil {
		t.Errorf("cancelled = %s at %v", cancelled.Status, cancelled.CancelledAt)
	}
	if len(h.revoker.revoked) != 1 || h.revoker.revoked[0] != res.ID {
		t.Errorf("revoked tickets = %v", h.revoker.revoked)
	}

	if _, err := h.svc.CancelReservation(ctx, res.ID, h.owner); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("second cancel: expected invalid state, got %v", err)
	}
}

func TestCancelRejectsEveryTerminalStatus(t *testing.T) {
	h := newHarness(t)
	for _, status := range []reservations.Status{
		reservations.StatusCompleted, reservations.StatusCancelled,
		reservations.StatusPaymentFailed, reservations.StatusExpired,
	} {
		id := uuid.New()
		h.store.Put(reservations.Reservation{ID: id, UserID: h.owner, SpaceID: h.space.ID, Status: status})
		if _, err := h.svc.CancelReservation(context.Background(), id, h.owner); !errors.Is(err, apperrors.ErrInvalidState) {
			t.Errorf("cancel %s: expected invalid state, got %v", status, err)
		}
	}
}

func TestCalculateAmount(t *testing.T) {
	h := newHarness(t)
	start := h.now

	quote, err := h.svc.CalculateAmount(start, start.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("CalculateAmount: %v", err)
	}
	if quote.Amount != 110 || quote.Hours != 2 {
		t.Errorf("quote = %+v", quote)
	}

	if _, err := h.svc.CalculateAmount(start, start); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("empty window: expected validation error, got %v", err)
	}
}

func TestCountHoldingByOwner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, _ := h.svc.CreateReservation(ctx, h.owner, h.request(h.now.Add(time.Hour), time.Hour))
	h.svc.CreateReservation(ctx, h.owner, h.request(h.now.Add(5*time.Hour), time.Hour))
	h.svc.CancelReservation(ctx, res.ID, h.owner)

	n, err := h.svc.CountHoldingByOwner(ctx, h.owner)
	if err != nil {
		t.Fatalf("CountHoldingByOwner: %v", err)
	}
	if n != 1 {
		t.Errorf("holding = %d, want 1", n)
	}
}
