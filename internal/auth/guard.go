package auth

import "context"

// Guard is the role gate in front of every externally reachable operation.
// It only reads from the directory and never mutates session state.
type Guard struct {
	dir Directory
}

func NewGuard(dir Directory) *Guard {
	return &Guard{dir: dir}
}

// Authorize resolves the token and checks the role. There is no role
// hierarchy: admin does not imply customer. Callers must abort before
// touching any state when an error is returned.
func (g *Guard) Authorize(ctx context.Context, token string, required Role) (*Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	identity, err := g.dir.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	if identity.Role != required {
		return nil, ErrForbidden
	}

	return identity, nil
}
