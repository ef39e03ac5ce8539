// Package mocks holds testify mocks for the repository contracts.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"user-auth/internal/domain"
	"user-auth/internal/repository"
)

var _ repository.UserRepository = (*MockUserRepository)(nil)

// MockUserRepository is a testify mock of repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock whose expectations are asserted when
// the test finishes.
func NewMockUserRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUserRepository) Init(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUserRepository) FindUserBy(ctx context.Context, criteria domain.UserCriteria) (*domain.User, error) {
	args := m.Called(ctx, criteria)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) AddUser(ctx context.Context, email, hashedPassword string) (*domain.User, error) {
	args := m.Called(ctx, email, hashedPassword)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, id int64, update domain.UserUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}
