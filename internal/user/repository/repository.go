package repository

import (
	"context"
	"errors"

	"nutriflow/auth/internal/user/domain"
)

// ErrDuplicateEmail is returned by Create when the email is already taken.
// Uniqueness is enforced by the database constraint, so concurrent creates
// with the same email cannot both succeed.
var ErrDuplicateEmail = errors.New("email already registered")

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}
