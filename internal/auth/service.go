package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SessionIssuer is the write side of the directory: login issues tokens,
// logout revokes them.
type SessionIssuer interface {
	Issue(ctx context.Context, identity *Identity) (string, error)
	Revoke(ctx context.Context, token string) error
}

type Service struct {
	users    UserRepository
	sessions SessionIssuer
}

func NewService(users UserRepository, sessions SessionIssuer) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
	}
}

// Register creates a customer account. Admin accounts are provisioned
// directly in the database, never through this endpoint.
func (s *Service) Register(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         RoleCustomer,
	}

	return s.users.CreateUser(ctx, user)
}

// Login verifies credentials and issues a session token carrying the
// server-side role.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(ctx, &Identity{
		UserID: user.ID.String(),
		Role:   user.Role,
	})
	if err != nil {
		return "", fmt.Errorf("issue session: %w", err)
	}

	return token, nil
}

// Logout revokes the session token. Revoking an unknown token is not an
// error; the session is gone either way.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return ErrUnauthenticated
	}
	return s.sessions.Revoke(ctx, token)
}
