package reconciliation

import (
	"context"
	"time"

	"parkly/internal/reservations"
	"parkly/internal/shared/txn"
	"parkly/internal/tickets"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store finds the records each sweep should look at. Every finder returns at most limit rows.
type Store interface {
	FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]reservations.Reservation, error)
	FindNoShows(ctx context.Context, now time.Time, limit int) ([]Candidate, error)
	FindFinished(ctx context.Context, now time.Time, limit int) ([]Candidate, error)
	FindStaleTickets(ctx context.Context, now time.Time, limit int) ([]tickets.Ticket, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Store {
	return &repository{db: db}
}

func (r *repository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]reservations.Reservation, error) {
	var rows []reservations.Reservation
	err := txn.Conn(ctx, r.db).
		Where("status = ? AND payment_hold_expiry < ?", reservations.StatusPendingPayment, now.UTC()).
		Order("payment_hold_expiry ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindNoShows(ctx context.Context, now time.Time, limit int) ([]Candidate, error) {
	var rows []reservations.Reservation
	err := txn.Conn(ctx, r.db).
		Joins("JOIN tickets ON tickets.reservation_id = reservations.id AND tickets.status = ?", tickets.StatusActive).
		Where("reservations.status = ? AND reservations.payment_status = ? AND reservations.start_time < ?",
			reservations.StatusActive, reservations.PaymentCompleted, now.UTC()).
		Order("reservations.start_time ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.withTickets(ctx, rows)
}

func (r *repository) FindFinished(ctx context.Context, now time.Time, limit int) ([]Candidate, error) {
	var rows []reservations.Reservation
	err := txn.Conn(ctx, r.db).
		Where("status IN ? AND end_time < ?",
			[]string{string(reservations.StatusActive), string(reservations.StatusInProgress)}, now.UTC()).
		Order("end_time ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.withTickets(ctx, rows)
}

func (r *repository) FindStaleTickets(ctx context.Context, now time.Time, limit int) ([]tickets.Ticket, error) {
	var rows []tickets.Ticket
	err := txn.Conn(ctx, r.db).
		Where("status = ? AND expires_at < ?", tickets.StatusActive, now.UTC()).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// withTickets pairs each reservation with its ticket in one extra query
func (r *repository) withTickets(ctx context.Context, rows []reservations.Reservation) ([]Candidate, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	var issued []tickets.Ticket
	if err := txn.Conn(ctx, r.db).Where("reservation_id IN ?", ids).Find(&issued).Error; err != nil {
		return nil, err
	}
	byReservation := make(map[uuid.UUID]*tickets.Ticket, len(issued))
	for i := range issued {
		byReservation[issued[i].ReservationID] = &issued[i]
	}

	out := make([]Candidate, len(rows))
	for i, row := range rows {
		out[i] = Candidate{Reservation: row, Ticket: byReservation[row.ID]}
	}
	return out, nil
}
