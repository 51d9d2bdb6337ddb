package users

import (
	"context"
	"errors"
	"fmt"

	"parkly/internal/shared/apperrors"

	"github.com/google/uuid"
)

// HoldingReservationCounter reports reservations that still occupy a space
type HoldingReservationCounter interface {
	CountHoldingByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*ProfileResponse, error)
	UpdateNotifications(ctx context.Context, userID uuid.UUID, req *UpdateNotificationsRequest) (*Settings, error)
	UpdatePreferences(ctx context.Context, userID uuid.UUID, req *UpdatePreferencesRequest) (*Settings, error)
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
	GetUser(ctx context.Context, userID uuid.UUID) (*User, error)
}

type service struct {
	repo         Repository
	reservations HoldingReservationCounter
}

func NewService(repo Repository, reservations HoldingReservationCounter) Service {
	return &service{repo: repo, reservations: reservations}
}

func (s *service) GetUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileResponse, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	settings, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return toProfile(user, settings), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*ProfileResponse, error) {
	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}

	if len(updates) > 0 {
		if err := s.repo.UpdateProfile(ctx, userID, updates); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return nil, apperrors.NotFound("User not found")
			}
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}
	return s.GetProfile(ctx, userID)
}

func (s *service) UpdateNotifications(ctx context.Context, userID uuid.UUID, req *UpdateNotificationsRequest) (*Settings, error) {
	return s.updateSettings(ctx, userID, func(st *Settings) {
		if req.Email != nil {
			st.EmailNotifications = *req.Email
		}
		if req.SMS != nil {
			st.SMSNotifications = *req.SMS
		}
		if req.Reminders != nil {
			st.Reminders = *req.Reminders
		}
	})
}

func (s *service) UpdatePreferences(ctx context.Context, userID uuid.UUID, req *UpdatePreferencesRequest) (*Settings, error) {
	return s.updateSettings(ctx, userID, func(st *Settings) {
		if req.DefaultLocation != nil {
			st.DefaultLocation = *req.DefaultLocation
		}
		if req.PaymentMethod != nil {
			st.PaymentMethod = *req.PaymentMethod
		}
		if req.AutoExtend != nil {
			st.AutoExtend = *req.AutoExtend
		}
	})
}

func (s *service) updateSettings(ctx context.Context, userID uuid.UUID, apply func(*Settings)) (*Settings, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	settings, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	apply(settings)
	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	return settings, nil
}

// DeleteAccount refuses while the user still holds a space; past reservations and payments stay for audit
func (s *service) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	holding, err := s.reservations.CountHoldingByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check reservations: %w", err)
	}
	if holding > 0 {
		return apperrors.InvalidState("Cancel or finish your open bookings before deleting the account")
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return apperrors.NotFound("User not found")
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

func toProfile(u *User, st *Settings) *ProfileResponse {
	return &ProfileResponse{
		ID:        u.ID.String(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		Address:   u.Address,
		Role:      string(u.Role),
		Settings:  *st,
		CreatedAt: u.CreatedAt,
	}
}
