package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/praisehq/praise/internal/platform/httpx"
	"github.com/praisehq/praise/internal/users"
)

// UserFinder looks up users for credential checks and token resolution.
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (users.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (users.User, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo   UserFinder
	tokens *TokenStore
}

// NewService constructs a new Service.
func NewService(repo UserFinder, tokens *TokenStore) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Login validates credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (string, users.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return "", users.User{}, fmt.Errorf("auth: invalid credentials: %w", httpx.ErrUnauthorized)
	}
	if !user.IsActive {
		return "", users.User{}, fmt.Errorf("auth: invalid credentials: %w", httpx.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", users.User{}, fmt.Errorf("auth: invalid credentials: %w", httpx.ErrUnauthorized)
	}
	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return "", users.User{}, err
	}
	return token, user, nil
}

// Logout revokes a bearer token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// ResolveToken loads the user behind a bearer token.
func (s *Service) ResolveToken(ctx context.Context, token string) (users.User, error) {
	userID, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return users.User{}, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return users.User{}, fmt.Errorf("auth: token user missing: %w", httpx.ErrUnauthorized)
	}
	if !user.IsActive {
		return users.User{}, fmt.Errorf("auth: user deactivated: %w", httpx.ErrUnauthorized)
	}
	return user, nil
}
