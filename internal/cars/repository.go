package cars

import (
	"context"
	"errors"
	"time"

	"parkly/internal/shared/constants"
	"parkly/internal/shared/txn"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrCarNotFound = errors.New("car not found")

type Repository interface {
	Create(ctx context.Context, car *Car) error
	GetByID(ctx context.Context, id uuid.UUID) (*Car, error)
	ListActiveByOwner(ctx context.Context, ownerID uuid.UUID) ([]Car, error)
	CountActiveByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
	// ListAvailable returns the owner's active cars with no holding reservation in [from, to)
	ListAvailable(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]Car, error)
	Deactivate(ctx context.Context, id, ownerID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, car *Car) error {
	return txn.Conn(ctx, r.db).Create(car).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Car, error) {
	var car Car
	if err := txn.Conn(ctx, r.db).Where("id = ?", id).First(&car).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCarNotFound
		}
		return nil, err
	}
	return &car, nil
}

func (r *repository) ListActiveByOwner(ctx context.Context, ownerID uuid.UUID) ([]Car, error) {
	var cars []Car
	err := txn.Conn(ctx, r.db).
		Where("user_id = ? AND is_active = ?", ownerID, true).
		Order("created_at DESC").
		Find(&cars).Error
	return cars, err
}

func (r *repository) CountActiveByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	err := txn.Conn(ctx, r.db).
		Model(&Car{}).
		Where("user_id = ? AND is_active = ?", ownerID, true).
		Count(&count).Error
	return count, err
}

func (r *repository) ListAvailable(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]Car, error) {
	var cars []Car
	err := txn.Conn(ctx, r.db).
		Where("user_id = ? AND is_active = ?", ownerID, true).
		Where(`NOT EXISTS (
			SELECT 1 FROM reservations res
			WHERE res.car_id = cars.id
			AND res.status IN ?
			AND res.start_time < ?
			AND res.end_time > ?
		)`, constants.HoldingReservationStatuses, to.UTC(), from.UTC()).
		Order("created_at DESC").
		Find(&cars).Error
	return cars, err
}

func (r *repository) Deactivate(ctx context.Context, id, ownerID uuid.UUID) error {
	result := txn.Conn(ctx, r.db).
		Model(&Car{}).
		Where("id = ? AND user_id = ? AND is_active = ?", id, ownerID, true).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCarNotFound
	}
	return nil
}
