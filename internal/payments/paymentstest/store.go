// Package paymentstest provides an in-memory payments.Repository.
package paymentstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"parkly/internal/payments"

	"github.com/google/uuid"
)

type Store struct {
	mu   sync.Mutex
	rows map[uuid.UUID]payments.Payment
}

func NewStore() *Store {
	return &Store{rows: make(map[uuid.UUID]payments.Payment)}
}

// Put inserts or replaces a row directly
func (s *Store) Put(p payments.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[p.ID] = p
}

// Snapshot copies the rows; the returned func puts them back
func (s *Store) Snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make(map[uuid.UUID]payments.Payment, len(s.rows))
	for id, row := range s.rows {
		saved[id] = row
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.rows = saved
	}
}

// ForReservation returns every attempt made for a reservation, oldest first
func (s *Store) ForReservation(reservationID uuid.UUID) []payments.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []payments.Payment
	for _, p := range s.rows {
		if p.ReservationID == reservationID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) Create(_ context.Context, p *payments.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.CreatedAt
	row := *p
	row.Reservation = nil
	s.rows[p.ID] = row
	return nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*payments.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, payments.ErrPaymentNotFound
	}
	return &p, nil
}

func (s *Store) LockByOrderID(_ context.Context, orderID string) (*payments.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.rows {
		if p.OrderID == orderID {
			out := p
			return &out, nil
		}
	}
	return nil, payments.ErrPaymentNotFound
}

func (s *Store) ListByOwner(_ context.Context, ownerID uuid.UUID, since *time.Time) ([]payments.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []payments.Payment
	for _, p := range s.rows {
		if p.UserID != ownerID {
			continue
		}
		if since != nil && p.CreatedAt.Before(*since) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) Complete(_ context.Context, id uuid.UUID, gatewayPaymentID, signature string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok || (p.Status != payments.StatusPending && p.Status != payments.StatusFailed) {
		return false, nil
	}
	p.Status = payments.StatusCompleted
	p.GatewayPaymentID = &gatewayPaymentID
	p.Signature = &signature
	p.FailureReason = nil
	p.UpdatedAt = time.Now().UTC()
	s.rows[id] = p
	return true, nil
}

func (s *Store) Fail(_ context.Context, id uuid.UUID, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok || p.Status != payments.StatusPending {
		return false, nil
	}
	p.Status = payments.StatusFailed
	p.FailureReason = &reason
	p.UpdatedAt = time.Now().UTC()
	s.rows[id] = p
	return true, nil
}
