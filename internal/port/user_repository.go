package port

import (
	"context"
	"errors"

	"sweetshop/internal/core/domain"
)

// ErrDuplicateEmail is returned by CreateUser when the email is already registered.
var ErrDuplicateEmail = errors.New("duplicate email")

type UserRepository interface {
	// CreateUser persists a new user.
	CreateUser(ctx context.Context, user domain.User) error

	// GetUserByEmail retrieves a user by email, nil when absent.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}
