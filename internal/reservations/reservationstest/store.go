// Package reservationstest provides in-memory collaborators for the reservation ledger.
package reservationstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"parkly/internal/cars"
	"parkly/internal/reservations"
	"parkly/internal/shared/apperrors"
	"parkly/internal/spaces"
	"parkly/internal/users"

	"github.com/google/uuid"
)

// Fixtures holds the inventory, vehicles and users a test books against.
// It satisfies reservations.SpaceLocker, CarLookup and AvailabilityInvalidator.
type Fixtures struct {
	mu     sync.Mutex
	spaces map[uuid.UUID]*spaces.ParkingSpace
	cars   map[uuid.UUID]*cars.Car
	users  map[uuid.UUID]*users.User

	Invalidations int
}

func NewFixtures() *Fixtures {
	return &Fixtures{
		spaces: make(map[uuid.UUID]*spaces.ParkingSpace),
		cars:   make(map[uuid.UUID]*cars.Car),
		users:  make(map[uuid.UUID]*users.User),
	}
}

// AddSpace registers an active space with the given label
func (f *Fixtures) AddSpace(label string) *spaces.ParkingSpace {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &spaces.ParkingSpace{ID: uuid.New(), Label: label, Floor: 1, Row: 1, Column: 1, IsActive: true}
	f.spaces[s.ID] = s
	return s
}

// AddUser registers a user and one active car for them
func (f *Fixtures) AddUser(first, last string) (*users.User, *cars.Car) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &users.User{ID: uuid.New(), FirstName: first, LastName: last, Email: first + "@example.com", Role: users.RoleUser}
	c := &cars.Car{ID: uuid.New(), UserID: u.ID, Make: "Tata", Model: "Nexon", LicensePlate: "KA01" + first, IsActive: true}
	f.users[u.ID] = u
	f.cars[c.ID] = c
	return u, c
}

func (f *Fixtures) LockForUpdate(_ context.Context, id uuid.UUID) (*spaces.ParkingSpace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.spaces[id]
	if !ok {
		return nil, spaces.ErrSpaceNotFound
	}
	out := *s
	return &out, nil
}

func (f *Fixtures) GetOwnedActive(_ context.Context, ownerID, carID uuid.UUID) (*cars.Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cars[carID]
	if !ok || c.UserID != ownerID || !c.IsActive {
		return nil, apperrors.NotFound("Car not found")
	}
	out := *c
	return &out, nil
}

func (f *Fixtures) InvalidateAvailability(context.Context) {
	f.mu.Lock()
	f.Invalidations++
	f.mu.Unlock()
}

func (f *Fixtures) relations(r *reservations.Reservation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.Space = f.spaces[r.SpaceID]
	r.Car = f.cars[r.CarID]
	r.User = f.users[r.UserID]
}

// Store is an in-memory reservations.Repository
type Store struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]reservations.Reservation
	fixtures *Fixtures
}

func NewStore(fixtures *Fixtures) *Store {
	return &Store{rows: make(map[uuid.UUID]reservations.Reservation), fixtures: fixtures}
}

// Put inserts or replaces a row directly
func (s *Store) Put(r reservations.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[r.ID] = r
}

// Snapshot copies the rows; the returned func puts them back
func (s *Store) Snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make(map[uuid.UUID]reservations.Reservation, len(s.rows))
	for id, row := range s.rows {
		saved[id] = row
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.rows = saved
	}
}

// Get returns a copy of the stored row
func (s *Store) Get(id uuid.UUID) (reservations.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	return r, ok
}

// All returns every row ordered by start time
func (s *Store) All() []reservations.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]reservations.Reservation, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (s *Store) Create(_ context.Context, r *reservations.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	row := *r
	row.Space, row.Car, row.User = nil, nil, nil
	s.rows[r.ID] = row
	return nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*reservations.Reservation, error) {
	r, ok := s.Get(id)
	if !ok {
		return nil, reservations.ErrReservationNotFound
	}
	return &r, nil
}

func (s *Store) GetByIDWithRelations(ctx context.Context, id uuid.UUID) (*reservations.Reservation, error) {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.fixtures != nil {
		s.fixtures.relations(r)
	}
	return r, nil
}

func (s *Store) LockForUpdate(ctx context.Context, id uuid.UUID) (*reservations.Reservation, error) {
	return s.GetByID(ctx, id)
}

func (s *Store) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]reservations.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reservations.Reservation
	for _, r := range s.rows {
		if r.UserID == ownerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) FindOverlapping(_ context.Context, spaceID uuid.UUID, start, end time.Time, statuses []reservations.Status) ([]reservations.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reservations.Reservation
	for _, r := range s.rows {
		if r.SpaceID != spaceID || !r.Overlaps(start, end) {
			continue
		}
		if len(statuses) > 0 && !contains(statuses, r.Status) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) Apply(_ context.Context, id uuid.UUID, t reservations.Transition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || !contains(t.From, r.Status) {
		return false, nil
	}
	if !t.HoldLapsedBefore.IsZero() && (r.PaymentHoldExpiry == nil || !r.PaymentHoldExpiry.Before(t.HoldLapsedBefore)) {
		return false, nil
	}
	if t.To != "" {
		r.Status = t.To
	}
	for k, v := range t.Updates {
		applyColumn(&r, k, v)
	}
	r.UpdatedAt = time.Now().UTC()
	s.rows[id] = r
	return true, nil
}

func (s *Store) CountHoldingByOwner(_ context.Context, ownerID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.rows {
		if r.UserID == ownerID && r.Status.IsHolding() {
			n++
		}
	}
	return n, nil
}

// applyColumn maps the column names used in Transition.Updates onto the struct
func applyColumn(r *reservations.Reservation, column string, value interface{}) {
	switch column {
	case "payment_status":
		r.PaymentStatus = value.(reservations.PaymentStatus)
	case "payment_hold_expiry":
		if value == nil {
			r.PaymentHoldExpiry = nil
			return
		}
		t := value.(time.Time)
		r.PaymentHoldExpiry = &t
	case "cancelled_at":
		t := value.(time.Time)
		r.CancelledAt = &t
	default:
		panic("reservationstest: unsupported column " + column)
	}
}

func contains(statuses []reservations.Status, s reservations.Status) bool {
	for _, x := range statuses {
		if x == s {
			return true
		}
	}
	return false
}
