package accounts

import (
	"context"

	"github.com/google/uuid"

	"libretto/internal/auth"
)

// Service defines the interface for the accounts component.
type Service interface {
	Register(ctx context.Context, reg Registration) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	ListByRole(ctx context.Context, role auth.Role) ([]*User, error)
	SetRole(ctx context.Context, id uuid.UUID, role auth.Role) (*User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// Store persists users. Implementations translate their storage errors into
// the apierror taxonomy.
type Store interface {
	CreateUser(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ListByRole(ctx context.Context, role auth.Role) ([]*User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role auth.Role) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
