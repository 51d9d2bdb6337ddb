package tickets_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"parkly/internal/reservations"
	"parkly/internal/reservations/reservationstest"
	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/config"
	"parkly/internal/shared/txn/txntest"
	"parkly/internal/tickets"
	"parkly/internal/tickets/ticketstest"
	"parkly/pkg/logger"

	"github.com/google/uuid"
)

type harness struct {
	svc          tickets.Service
	store        *ticketstest.Store
	reservations *reservationstest.Store
	fixtures     *reservationstest.Fixtures
	tx           *txntest.Serial
	cfg          config.TicketConfig
	owner        uuid.UUID
	carID        uuid.UUID
	spaceID      uuid.UUID
	start        time.Time
	now          time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fixtures := reservationstest.NewFixtures()
	user, car := fixtures.AddUser("ravi", "kumar")
	space := fixtures.AddSpace("101")

	cfg := config.TicketConfig{
		SigningSecret: "test-secret",
		Issuer:        "parking-system",
		Audience:      "ticket-scanner",
		TokenTTL:      24 * time.Hour,
		GracePeriod:   time.Hour,
		EntryWindow:   30 * time.Minute,
	}

	h := &harness{
		store:        ticketstest.NewStore(),
		reservations: reservationstest.NewStore(fixtures),
		fixtures:     fixtures,
		tx:           &txntest.Serial{},
		cfg:          cfg,
		owner:        user.ID,
		carID:        car.ID,
		spaceID:      space.ID,
		start:        time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC),
	}
	h.now = h.start.Add(-2 * time.Hour)
	h.tx.Register(h.store, h.reservations)
	h.svc = h.service(h.reservations)
	return h
}

func (h *harness) service(repo reservations.Repository) tickets.Service {
	return tickets.NewService(tickets.Dependencies{
		Repo:         h.store,
		Reservations: repo,
		Transactor:   h.tx,
		Signer:       tickets.NewSigner(h.cfg),
		Logger:       logger.NewNop(),
		Config:       h.cfg,
		Now:          func() time.Time { return h.now },
	})
}

func (h *harness) paidReservation() uuid.UUID {
	id := uuid.New()
	h.reservations.Put(reservations.Reservation{
		ID:            id,
		UserID:        h.owner,
		SpaceID:       h.spaceID,
		CarID:         h.carID,
		StartTime:     h.start,
		EndTime:       h.start.Add(90 * time.Minute),
		Status:        reservations.StatusActive,
		PaymentStatus: reservations.PaymentCompleted,
		TotalAmount:   110,
	})
	return id
}

func TestIssueIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.paidReservation()

	first, err := h.svc.Issue(ctx, id, h.owner)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	second, err := h.svc.Issue(ctx, id, h.owner)
	if err != nil {
		t.Fatalf("second Issue: %v", err)
	}

	if first.ID != second.ID || first.Token != second.Token {
		t.Fatalf("second issue minted a new ticket: %s vs %s", first.ID, second.ID)
	}
	if h.store.Creates != 1 {
		t.Errorf("creates = %d, want 1", h.store.Creates)
	}
	if first.Status != tickets.StatusActive || !first.ExpiresAt.Equal(h.start.Add(time.Hour)) {
		t.Errorf("ticket = %s expiring %v", first.Status, first.ExpiresAt)
	}
	if !strings.HasPrefix(first.QRCodeData, "data:image/png;base64,") {
		t.Error("issued ticket should carry its QR image")
	}
}

func TestIssueRequiresPaidActiveReservation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		status  reservations.Status
		payment reservations.PaymentStatus
	}{
		{"awaiting payment", reservations.StatusPendingPayment, reservations.PaymentPending},
		{"payment failed", reservations.StatusPendingPayment, reservations.PaymentFailed},
		{"cancelled", reservations.StatusCancelled, reservations.PaymentCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := uuid.New()
			h.reservations.Put(reservations.Reservation{
				ID: id, UserID: h.owner, SpaceID: h.spaceID, CarID: h.carID,
				StartTime: h.start, EndTime: h.start.Add(time.Hour),
				Status: tt.status, PaymentStatus: tt.payment,
			})
			if _, err := h.svc.Issue(ctx, id, h.owner); !errors.Is(err, apperrors.ErrInvalidState) {
				t.Fatalf("expected invalid state, got %v", err)
			}
		})
	}

	if _, err := h.svc.Issue(ctx, h.paidReservation(), uuid.New()); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("stranger issue: expected not found, got %v", err)
	}
	if h.store.Creates != 0 {
		t.Errorf("creates = %d, want 0", h.store.Creates)
	}
}

func TestValidateScansOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.paidReservation()
	ticket, err := h.svc.Issue(ctx, id, h.owner)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	h.now = h.start.Add(-10 * time.Minute)
	result, err := h.svc.Validate(ctx, ticket.Token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.Valid || result.Message != "Access granted" {
		t.Fatalf("first scan = %+v", result)
	}
	if result.Data == nil || result.Data.Space != "101 (Floor 1)" || result.Data.UserName != "ravi kumar" {
		t.Errorf("scan details = %+v", result.Data)
	}

	stored, _ := h.store.ForReservation(id)
	if stored.Status != tickets.StatusUsed || stored.ScannedAt == nil || !stored.ScannedAt.Equal(h.now) {
		t.Errorf("ticket after scan = %s at %v", stored.Status, stored.ScannedAt)
	}
	reservation, _ := h.reservations.Get(id)
	if reservation.Status != reservations.StatusInProgress {
		t.Errorf("reservation after scan = %s", reservation.Status)
	}

	again, err := h.svc.Validate(ctx, ticket.Token)
	if err != nil {
		t.Fatalf("second Validate: %v", err)
	}
	if again.Valid || again.Message != "Ticket is used" {
		t.Fatalf("second scan = %+v", again)
	}
}

// cancelledAfterLoad hands out the reservation as loaded, then cancels it the
// way a concurrent no-show sweep would before the scan writes.
type cancelledAfterLoad struct {
	*reservationstest.Store
}

func (c cancelledAfterLoad) GetByIDWithRelations(ctx context.Context, id uuid.UUID) (*reservations.Reservation, error) {
	loaded, err := c.Store.GetByIDWithRelations(ctx, id)
	if err != nil {
		return nil, err
	}
	row, _ := c.Store.Get(id)
	row.Status = reservations.StatusCancelled
	c.Store.Put(row)
	return loaded, nil
}

func TestValidateRollsBackWhenReservationMovesMidScan(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.paidReservation()
	ticket, err := h.svc.Issue(ctx, id, h.owner)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	h.now = h.start.Add(-10 * time.Minute)
	result, err := h.service(cancelledAfterLoad{h.reservations}).Validate(ctx, ticket.Token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid {
		t.Fatalf("scan granted for a cancelled reservation: %+v", result)
	}
	if h.tx.RolledBack != 1 {
		t.Errorf("rolled back = %d, want 1", h.tx.RolledBack)
	}

	stored, _ := h.store.ForReservation(id)
	if stored.Status == tickets.StatusUsed || stored.ScannedAt != nil {
		t.Errorf("ticket = %s scanned %v, the scan must not half-apply", stored.Status, stored.ScannedAt)
	}
	reservation, _ := h.reservations.Get(id)
	if reservation.Status != reservations.StatusCancelled {
		t.Errorf("reservation = %s", reservation.Status)
	}
}

func TestValidateRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed token", func(t *testing.T) {
		h := newHarness(t)
		result, err := h.svc.Validate(ctx, "definitely.not.valid")
		if err != nil || result.Valid || result.Message != "Invalid ticket format" {
			t.Fatalf("result = %+v, err = %v", result, err)
		}
	})

	t.Run("unknown ticket", func(t *testing.T) {
		h := newHarness(t)
		token, _ := tickets.NewSigner(config.TicketConfig{
			SigningSecret: "test-secret", Issuer: "parking-system", Audience: "ticket-scanner", TokenTTL: 24 * time.Hour,
		}).Sign(uuid.New(), h.owner, h.now)
		result, err := h.svc.Validate(ctx, token)
		if err != nil || result.Valid || result.Message != "Invalid ticket" {
			t.Fatalf("result = %+v, err = %v", result, err)
		}
	})

	t.Run("too early", func(t *testing.T) {
		h := newHarness(t)
		ticket, _ := h.svc.Issue(ctx, h.paidReservation(), h.owner)
		h.now = h.start.Add(-31 * time.Minute)
		result, err := h.svc.Validate(ctx, ticket.Token)
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		want := "Entry allowed from " + h.start.Add(-30*time.Minute).Format(time.RFC3339)
		if result.Valid || result.Message != want {
			t.Fatalf("result = %+v, want %q", result, want)
		}
		stored, _ := h.store.GetByID(ctx, ticket.ID)
		if stored.Status != tickets.StatusActive {
			t.Errorf("early scan changed ticket to %s", stored.Status)
		}
	})

	t.Run("past grace period", func(t *testing.T) {
		h := newHarness(t)
		ticket, _ := h.svc.Issue(ctx, h.paidReservation(), h.owner)
		h.now = h.start.Add(61 * time.Minute)
		result, err := h.svc.Validate(ctx, ticket.Token)
		if err != nil || result.Valid || result.Message != "Ticket has expired" {
			t.Fatalf("result = %+v, err = %v", result, err)
		}
		stored, _ := h.store.GetByID(ctx, ticket.ID)
		if stored.Status != tickets.StatusExpired {
			t.Errorf("ticket = %s, want expired", stored.Status)
		}
	})

	t.Run("revoked", func(t *testing.T) {
		h := newHarness(t)
		id := h.paidReservation()
		ticket, _ := h.svc.Issue(ctx, id, h.owner)
		if err := h.svc.RevokeForReservation(ctx, id); err != nil {
			t.Fatalf("RevokeForReservation: %v", err)
		}
		h.now = h.start
		result, err := h.svc.Validate(ctx, ticket.Token)
		if err != nil || result.Valid || result.Message != "Ticket is cancelled" {
			t.Fatalf("result = %+v, err = %v", result, err)
		}
	})

	t.Run("booking no longer active", func(t *testing.T) {
		h := newHarness(t)
		id := h.paidReservation()
		ticket, _ := h.svc.Issue(ctx, id, h.owner)
		r, _ := h.reservations.Get(id)
		r.Status = reservations.StatusCancelled
		h.reservations.Put(r)
		h.now = h.start
		result, err := h.svc.Validate(ctx, ticket.Token)
		if err != nil || result.Valid || result.Message != "Booking is not valid" {
			t.Fatalf("result = %+v, err = %v", result, err)
		}
	})
}

func TestRevokeLeavesUsedTicketAlone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.paidReservation()
	ticket, _ := h.svc.Issue(ctx, id, h.owner)

	h.now = h.start
	if result, _ := h.svc.Validate(ctx, ticket.Token); !result.Valid {
		t.Fatalf("scan rejected: %s", result.Message)
	}
	if err := h.svc.RevokeForReservation(ctx, id); err != nil {
		t.Fatalf("RevokeForReservation: %v", err)
	}

	stored, _ := h.store.GetByID(ctx, ticket.ID)
	if stored.Status != tickets.StatusUsed {
		t.Errorf("used ticket became %s", stored.Status)
	}
}

func TestRenderPDFForOwnerOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket, _ := h.svc.Issue(ctx, h.paidReservation(), h.owner)

	_, pdf, err := h.svc.RenderPDF(ctx, ticket.ID, h.owner)
	if err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if !strings.HasPrefix(string(pdf), "%PDF") {
		t.Error("output is not a PDF")
	}

	if _, _, err := h.svc.RenderPDF(ctx, ticket.ID, uuid.New()); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("stranger download: expected not found, got %v", err)
	}
}
