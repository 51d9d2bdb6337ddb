// Package ticketstest provides an in-memory tickets.Repository.
package ticketstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"parkly/internal/tickets"

	"github.com/google/uuid"
)

type Store struct {
	mu   sync.Mutex
	rows map[uuid.UUID]tickets.Ticket

	// Creates counts successful inserts
	Creates int
}

func NewStore() *Store {
	return &Store{rows: make(map[uuid.UUID]tickets.Ticket)}
}

// Put inserts or replaces a row directly
func (s *Store) Put(t tickets.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[t.ID] = t
}

// Snapshot copies the rows; the returned func puts them back
func (s *Store) Snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make(map[uuid.UUID]tickets.Ticket, len(s.rows))
	for id, row := range s.rows {
		saved[id] = row
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.rows = saved
	}
}

// ForReservation returns the reservation's ticket
func (s *Store) ForReservation(reservationID uuid.UUID) (tickets.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.rows {
		if t.ReservationID == reservationID {
			return t, true
		}
	}
	return tickets.Ticket{}, false
}

// All returns every row ordered by expiry
func (s *Store) All() []tickets.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]tickets.Ticket, 0, len(s.rows))
	for _, t := range s.rows {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out
}

func (s *Store) Create(_ context.Context, t *tickets.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	row := *t
	row.Reservation = nil
	row.QRCodeData = ""
	s.rows[t.ID] = row
	s.Creates++
	return nil
}

func (s *Store) find(match func(tickets.Ticket) bool) (*tickets.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.rows {
		if match(t) {
			out := t
			return &out, nil
		}
	}
	return nil, tickets.ErrTicketNotFound
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*tickets.Ticket, error) {
	return s.find(func(t tickets.Ticket) bool { return t.ID == id })
}

func (s *Store) GetByReservation(_ context.Context, reservationID uuid.UUID) (*tickets.Ticket, error) {
	return s.find(func(t tickets.Ticket) bool { return t.ReservationID == reservationID })
}

func (s *Store) GetByToken(_ context.Context, token string) (*tickets.Ticket, error) {
	return s.find(func(t tickets.Ticket) bool { return t.Token == token })
}

func (s *Store) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]tickets.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tickets.Ticket
	for _, t := range s.rows {
		if t.UserID == ownerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) Transition(_ context.Context, id uuid.UUID, from, to tickets.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	s.rows[id] = t
	return true, nil
}

func (s *Store) MarkUsed(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	if !ok || t.Status != tickets.StatusActive {
		return false, nil
	}
	t.Status = tickets.StatusUsed
	t.ScannedAt = &at
	t.UpdatedAt = time.Now().UTC()
	s.rows[id] = t
	return true, nil
}

func (s *Store) TransitionByReservation(_ context.Context, reservationID uuid.UUID, from, to tickets.Status) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.rows {
		if t.ReservationID == reservationID && t.Status == from {
			t.Status = to
			t.UpdatedAt = time.Now().UTC()
			s.rows[id] = t
			n++
		}
	}
	return n, nil
}
