package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Recipients resolves e-mail recipients for notifications from the user table
type Recipients struct {
	repo Repository
}

func NewRecipients(repo Repository) *Recipients {
	return &Recipients{repo: repo}
}

// GetUserByID returns email, first name and last name for userID
func (r *Recipients) GetUserByID(ctx context.Context, userID uuid.UUID) (email, firstName, lastName string, err error) {
	user, err := r.repo.FindByID(ctx, userID)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}
	return user.Email, user.FirstName, user.LastName, nil
}
