package tickets

import (
	"context"
	"errors"
	"time"

	"parkly/internal/shared/txn"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrTicketNotFound = errors.New("ticket not found")

type Repository interface {
	Create(ctx context.Context, ticket *Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*Ticket, error)
	GetByReservation(ctx context.Context, reservationID uuid.UUID) (*Ticket, error)
	GetByToken(ctx context.Context, token string) (*Ticket, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Ticket, error)

	// Transition moves the ticket from one status to another; false when it was not in from
	Transition(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
	// MarkUsed moves an active ticket to used and records the scan time
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	// TransitionByReservation moves the reservation's ticket, if any, from one status to another
	TransitionByReservation(ctx context.Context, reservationID uuid.UUID, from, to Status) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, ticket *Ticket) error {
	return txn.Conn(ctx, r.db).Omit("Reservation").Create(ticket).Error
}

func (r *repository) first(ctx context.Context, query string, arg interface{}) (*Ticket, error) {
	var ticket Ticket
	if err := txn.Conn(ctx, r.db).Where(query, arg).First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) GetByReservation(ctx context.Context, reservationID uuid.UUID) (*Ticket, error) {
	return r.first(ctx, "reservation_id = ?", reservationID)
}

func (r *repository) GetByToken(ctx context.Context, token string) (*Ticket, error) {
	return r.first(ctx, "qr_token = ?", token)
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Ticket, error) {
	var tickets []Ticket
	err := txn.Conn(ctx, r.db).
		Preload("Reservation").
		Preload("Reservation.Space").
		Preload("Reservation.Car").
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&tickets).Error
	return tickets, err
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	result := txn.Conn(ctx, r.db).
		Model(&Ticket{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now().UTC()})
	return result.RowsAffected == 1, result.Error
}

func (r *repository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := txn.Conn(ctx, r.db).
		Model(&Ticket{}).
		Where("id = ? AND status = ?", id, StatusActive).
		Updates(map[string]interface{}{"status": StatusUsed, "scanned_at": at, "updated_at": time.Now().UTC()})
	return result.RowsAffected == 1, result.Error
}

func (r *repository) TransitionByReservation(ctx context.Context, reservationID uuid.UUID, from, to Status) (int64, error) {
	result := txn.Conn(ctx, r.db).
		Model(&Ticket{}).
		Where("reservation_id = ? AND status = ?", reservationID, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now().UTC()})
	return result.RowsAffected, result.Error
}
