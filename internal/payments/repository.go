package payments

import (
	"context"
	"errors"
	"time"

	"parkly/internal/shared/txn"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrPaymentNotFound = errors.New("payment not found")

type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// LockByOrderID row-locks the payment for the rest of the enclosing transaction
	LockByOrderID(ctx context.Context, orderID string) (*Payment, error)
	// ListByOwner returns the owner's payments newest first; since may be nil
	ListByOwner(ctx context.Context, ownerID uuid.UUID, since *time.Time) ([]Payment, error)

	// Complete moves a pending or failed payment to completed; false otherwise
	Complete(ctx context.Context, id uuid.UUID, gatewayPaymentID, signature string) (bool, error)
	// Fail moves a pending payment to failed; false when it was not pending
	Fail(ctx context.Context, id uuid.UUID, reason string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, payment *Payment) error {
	return txn.Conn(ctx, r.db).Omit(clause.Associations).Create(payment).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	var payment Payment
	err := txn.Conn(ctx, r.db).
		Preload("Reservation").
		Preload("Reservation.Space").
		Where("id = ?", id).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) LockByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	var payment Payment
	err := txn.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, since *time.Time) ([]Payment, error) {
	var payments []Payment
	query := txn.Conn(ctx, r.db).
		Preload("Reservation").
		Preload("Reservation.Space").
		Where("user_id = ?", ownerID)
	if since != nil {
		query = query.Where("created_at >= ?", since.UTC())
	}
	err := query.Order("created_at DESC").Find(&payments).Error
	return payments, err
}

func (r *repository) Complete(ctx context.Context, id uuid.UUID, gatewayPaymentID, signature string) (bool, error) {
	result := txn.Conn(ctx, r.db).
		Model(&Payment{}).
		Where("id = ? AND status IN ?", id, []Status{StatusPending, StatusFailed}).
		Updates(map[string]interface{}{
			"status":             StatusCompleted,
			"gateway_payment_id": gatewayPaymentID,
			"signature":          signature,
			"failure_reason":     nil,
			"updated_at":         time.Now().UTC(),
		})
	return result.RowsAffected == 1, result.Error
}

func (r *repository) Fail(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	result := txn.Conn(ctx, r.db).
		Model(&Payment{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"status":         StatusFailed,
			"failure_reason": reason,
			"updated_at":     time.Now().UTC(),
		})
	return result.RowsAffected == 1, result.Error
}
