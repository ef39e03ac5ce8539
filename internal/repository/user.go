package repository

import (
	"context"

	"user-auth/internal/domain"
)

// UserRepository defines persistence operations for User records.
//
// Implementations own durability and the uniqueness of User.Email: AddUser
// must reject a duplicate email atomically, also under concurrent inserts.
type UserRepository interface {
	Init(ctx context.Context) error
	// FindUserBy returns the single user matching criteria, or ErrNotFound.
	FindUserBy(ctx context.Context, criteria domain.UserCriteria) (*domain.User, error)
	// AddUser inserts a user with no session and no reset token, or returns ErrAlreadyExists.
	AddUser(ctx context.Context, email, hashedPassword string) (*domain.User, error)
	// UpdateUser applies update to the user with the given id in one atomic
	// write. It returns ErrNotFound when no record matches id (and
	// update.ResetTokenMatch, if set), and ErrEmptyUpdate when update
	// changes no column.
	UpdateUser(ctx context.Context, id int64, update domain.UserUpdate) error
}
