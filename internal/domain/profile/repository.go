package profile

import (
	"context"

	"github.com/abroad-hub/counsellor/internal/domain/shared"
)

// UserRepository reads user identity and the onboarding flag.
type UserRepository interface {
	// GetUser returns shared.ErrUserNotFound if the user does not exist.
	GetUser(ctx context.Context, id shared.UserID) (*User, error)
}

// Repository reads student profiles.
type Repository interface {
	// GetProfile returns shared.ErrProfileNotFound if the intake flow has not
	// stored a profile yet.
	GetProfile(ctx context.Context, userID shared.UserID) (*Profile, error)
}
