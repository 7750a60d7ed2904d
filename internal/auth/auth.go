package auth

import (
	"context"
	"errors"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

var (
	ErrUnauthenticated    = errors.New("missing or invalid session token")
	ErrForbidden          = errors.New("operation not permitted for this role")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

// Identity is what the session directory resolves a token to.
type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// Directory resolves opaque session tokens. Token semantics belong entirely
// to the implementation; the guard treats tokens as strings.
type Directory interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}
