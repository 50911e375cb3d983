package users

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	FindByID(ctx context.Context, id uuid.UUID) (User, error)
	ListQuantifiers(ctx context.Context) ([]User, error)
	ListAccountsByUser(ctx context.Context, userID uuid.UUID) ([]UserAccount, error)
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns a single user with linked accounts.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (User, []UserAccount, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, nil, err
	}
	accounts, err := s.repo.ListAccountsByUser(ctx, id)
	if err != nil {
		return User{}, nil, err
	}
	return user, accounts, nil
}

// ListQuantifiers returns the eligible quantifier pool.
func (s *Service) ListQuantifiers(ctx context.Context) ([]User, error) {
	return s.repo.ListQuantifiers(ctx)
}
