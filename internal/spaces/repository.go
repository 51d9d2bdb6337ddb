package spaces

import (
	"context"
	"errors"
	"time"

	"parkly/internal/shared/constants"
	"parkly/internal/shared/txn"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrSpaceNotFound = errors.New("parking space not found")

type Repository interface {
	Count(ctx context.Context) (int64, error)
	CreateBatch(ctx context.Context, spaces []ParkingSpace) error
	GetByID(ctx context.Context, id uuid.UUID) (*ParkingSpace, error)
	// LockForUpdate row-locks the space for the rest of the enclosing transaction
	LockForUpdate(ctx context.Context, id uuid.UUID) (*ParkingSpace, error)
	FindAvailable(ctx context.Context, from, to time.Time, floor int) ([]ParkingSpace, error)
	ListAll(ctx context.Context) ([]ParkingSpace, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := txn.Conn(ctx, r.db).Model(&ParkingSpace{}).Count(&count).Error
	return count, err
}

func (r *repository) CreateBatch(ctx context.Context, spaces []ParkingSpace) error {
	return txn.Conn(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "label"}}, DoNothing: true}).
		CreateInBatches(spaces, 50).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*ParkingSpace, error) {
	var space ParkingSpace
	if err := txn.Conn(ctx, r.db).Where("id = ?", id).First(&space).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSpaceNotFound
		}
		return nil, err
	}
	return &space, nil
}

func (r *repository) LockForUpdate(ctx context.Context, id uuid.UUID) (*ParkingSpace, error) {
	var space ParkingSpace
	err := txn.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&space).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSpaceNotFound
		}
		return nil, err
	}
	return &space, nil
}

func (r *repository) FindAvailable(ctx context.Context, from, to time.Time, floor int) ([]ParkingSpace, error) {
	var spaces []ParkingSpace
	query := txn.Conn(ctx, r.db).
		Where("is_active = ?", true).
		Where(`NOT EXISTS (
			SELECT 1 FROM reservations res
			WHERE res.space_id = parking_spaces.id
			AND res.status IN ?
			AND res.start_time < ?
			AND res.end_time > ?
		)`, constants.HoldingReservationStatuses, to.UTC(), from.UTC())

	if floor > 0 {
		query = query.Where("floor = ?", floor)
	}

	err := query.Order("floor ASC, position_row ASC, position_column ASC").Find(&spaces).Error
	return spaces, err
}

func (r *repository) ListAll(ctx context.Context) ([]ParkingSpace, error) {
	var spaces []ParkingSpace
	err := txn.Conn(ctx, r.db).
		Order("floor ASC, position_row ASC, position_column ASC").
		Find(&spaces).Error
	return spaces, err
}
