package repository

import (
	"context"
	"errors"

	"article-api/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when the store's unique email index rejects a write.
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (string, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// UpdateProfile sets the non-nil fields and returns the post-update record.
	UpdateProfile(ctx context.Context, id string, name *string, age *float64) (*domain.User, error)
}
