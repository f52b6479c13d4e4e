package accounts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"libretto/internal/apierror"
	"libretto/internal/auth"
)

// postgresStore persists users in PostgreSQL.
type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a user store backed by the given database.
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, username, email, role, active, password_hash, salt)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowxContext(ctx, query,
		user.ID, user.Username, user.Email, user.Role, user.Active, user.PasswordHash, user.Salt,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return apierror.FromStore(err, "user not found")
	}
	return nil
}

func (s *postgresStore) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT id, username, email, role, active, password_hash, salt, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	user := &User{}
	if err := s.db.GetContext(ctx, user, query, id); err != nil {
		return nil, apierror.FromStore(err, fmt.Sprintf("user %s not found", id))
	}
	return user, nil
}

func (s *postgresStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, email, role, active, password_hash, salt, created_at, updated_at
		FROM users
		WHERE username = $1
	`
	user := &User{}
	if err := s.db.GetContext(ctx, user, query, username); err != nil {
		return nil, apierror.FromStore(err, "user not found")
	}
	return user, nil
}

func (s *postgresStore) ListByRole(ctx context.Context, role auth.Role) ([]*User, error) {
	query := `
		SELECT id, username, email, role, active, password_hash, salt, created_at, updated_at
		FROM users
		WHERE role = $1 AND active
		ORDER BY username
	`
	var users []*User
	if err := s.db.SelectContext(ctx, &users, query, role); err != nil {
		return nil, apierror.FromStore(err, "no users")
	}
	return users, nil
}

func (s *postgresStore) UpdateRole(ctx context.Context, id uuid.UUID, role auth.Role) error {
	query := `
		UPDATE users
		SET role = $1, updated_at = NOW()
		WHERE id = $2
	`
	res, err := s.db.ExecContext(ctx, query, role, id)
	if err != nil {
		return apierror.FromStore(err, "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierror.NotFound(fmt.Sprintf("user %s not found", id))
	}
	return nil
}

func (s *postgresStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `
		UPDATE users
		SET active = $1, updated_at = NOW()
		WHERE id = $2
	`
	res, err := s.db.ExecContext(ctx, query, active, id)
	if err != nil {
		return apierror.FromStore(err, "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierror.NotFound(fmt.Sprintf("user %s not found", id))
	}
	return nil
}
