package reservations

import (
	"context"
	"errors"
	"time"

	"parkly/internal/shared/txn"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrReservationNotFound = errors.New("reservation not found")

type Repository interface {
	Create(ctx context.Context, reservation *Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	GetByIDWithRelations(ctx context.Context, id uuid.UUID) (*Reservation, error)
	// LockForUpdate row-locks the reservation for the rest of the enclosing transaction
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Reservation, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Reservation, error)

	// FindOverlapping returns reservations on spaceID in one of statuses that overlap [start, end)
	FindOverlapping(ctx context.Context, spaceID uuid.UUID, start, end time.Time, statuses []Status) ([]Reservation, error)

	// Apply performs a conditional transition and reports whether the row matched
	Apply(ctx context.Context, id uuid.UUID, t Transition) (bool, error)

	CountHoldingByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, reservation *Reservation) error {
	return txn.Conn(ctx, r.db).Omit(clause.Associations).Create(reservation).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	var reservation Reservation
	if err := txn.Conn(ctx, r.db).Where("id = ?", id).First(&reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) GetByIDWithRelations(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	var reservation Reservation
	err := txn.Conn(ctx, r.db).
		Preload("User").
		Preload("Space").
		Preload("Car").
		Where("id = ?", id).
		First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) LockForUpdate(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	var reservation Reservation
	err := txn.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Reservation, error) {
	var reservations []Reservation
	err := txn.Conn(ctx, r.db).
		Preload("Space").
		Preload("Car").
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&reservations).Error
	return reservations, err
}

func (r *repository) FindOverlapping(ctx context.Context, spaceID uuid.UUID, start, end time.Time, statuses []Status) ([]Reservation, error) {
	var reservations []Reservation
	query := txn.Conn(ctx, r.db).
		Where("space_id = ?", spaceID).
		Where("start_time < ? AND end_time > ?", end.UTC(), start.UTC())
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statusStrings(statuses))
	}
	err := query.Order("start_time ASC").Find(&reservations).Error
	return reservations, err
}

func (r *repository) Apply(ctx context.Context, id uuid.UUID, t Transition) (bool, error) {
	updates := make(map[string]interface{}, len(t.Updates)+2)
	for k, v := range t.Updates {
		updates[k] = v
	}
	if t.To != "" {
		updates["status"] = t.To
	}
	updates["updated_at"] = time.Now().UTC()

	query := txn.Conn(ctx, r.db).
		Model(&Reservation{}).
		Where("id = ? AND status IN ?", id, statusStrings(t.From))
	if !t.HoldLapsedBefore.IsZero() {
		query = query.Where("payment_hold_expiry < ?", t.HoldLapsedBefore.UTC())
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) CountHoldingByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	err := txn.Conn(ctx, r.db).
		Model(&Reservation{}).
		Where("user_id = ? AND status IN ?", ownerID, statusStrings(HoldingStatuses)).
		Count(&count).Error
	return count, err
}
