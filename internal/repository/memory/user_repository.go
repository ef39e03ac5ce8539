// Package memory provides a process-local UserRepository. It is used by tests
// and by the "memory" database driver for local development.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"user-auth/internal/domain"
	"user-auth/internal/repository"
)

type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*domain.User
	now    func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[int64]*domain.User),
		now:   time.Now,
	}
}

func (r *UserRepository) Init(ctx context.Context) error {
	return ctx.Err()
}

func (r *UserRepository) FindUserBy(ctx context.Context, criteria domain.UserCriteria) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, repository.NewStoreError("find user", err)
	}
	if !criteria.Valid() {
		return nil, fmt.Errorf("%w: %q", repository.ErrInvalidCriteria, criteria.Field)
	}
	if criteria.Value == "" {
		return nil, repository.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *domain.User
	for _, u := range r.users {
		if !matches(u, criteria) {
			continue
		}
		// lowest id wins, like an unordered SQL lookup on a fresh table
		if found == nil || u.ID < found.ID {
			found = u
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return clone(found), nil
}

func (r *UserRepository) AddUser(ctx context.Context, email, hashedPassword string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, repository.NewStoreError("insert user", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return nil, fmt.Errorf("%w: %s", repository.ErrAlreadyExists, email)
		}
	}

	r.nextID++
	now := r.now().UTC()
	user := &domain.User{
		ID:             r.nextID,
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.users[user.ID] = user
	return clone(user), nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, id int64, update domain.UserUpdate) error {
	if err := ctx.Err(); err != nil {
		return repository.NewStoreError("update user", err)
	}
	if update.Empty() {
		return repository.ErrEmptyUpdate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if update.ResetTokenMatch != nil && (u.ResetToken == nil || *u.ResetToken != *update.ResetTokenMatch) {
		return repository.ErrNotFound
	}

	if update.HashedPassword != nil {
		u.HashedPassword = *update.HashedPassword
	}
	if update.SessionID.IsSet() {
		u.SessionID = copyString(update.SessionID.Value())
	}
	if update.ResetToken.IsSet() {
		u.ResetToken = copyString(update.ResetToken.Value())
	}
	u.UpdatedAt = r.now().UTC()
	return nil
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func matches(u *domain.User, criteria domain.UserCriteria) bool {
	switch criteria.Field {
	case domain.LookupEmail:
		return u.Email == criteria.Value
	case domain.LookupSessionID:
		return u.SessionID != nil && *u.SessionID == criteria.Value
	case domain.LookupResetToken:
		return u.ResetToken != nil && *u.ResetToken == criteria.Value
	}
	return false
}

func clone(u *domain.User) *domain.User {
	c := *u
	c.SessionID = copyString(u.SessionID)
	c.ResetToken = copyString(u.ResetToken)
	return &c
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
