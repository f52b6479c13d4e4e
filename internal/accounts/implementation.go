package accounts

import (
	"context"
	"fmt"
	"net/mail"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"libretto/internal/apierror"
	"libretto/internal/auth"
)

// service implements the Service interface.
type service struct {
	store           Store
	registerLimiter *rate.Limiter
	loginLimiter    *rate.Limiter
}

// NewService creates a new accounts service instance.
func NewService(store Store) Service {
	return &service{
		store:           store,
		registerLimiter: rate.NewLimiter(rate.Every(time.Second), 10),
		loginLimiter:    rate.NewLimiter(rate.Every(time.Second), 10),
	}
}

const minPasswordLength = 8

// Register creates a new member account after validating the registration.
func (s *service) Register(ctx context.Context, reg Registration) (*User, error) {
	if !s.registerLimiter.Allow() {
		return nil, apierror.RateLimited("too many registration attempts, try again later")
	}

	fields := map[string]string{}
	if reg.Username == "" {
		fields["username"] = "must not be empty"
	}
	if _, err := mail.ParseAddress(reg.Email); err != nil {
		fields["email"] = "must be a valid email address"
	}
	if msg := passwordProblem(reg.Password); msg != "" {
		fields["password"] = msg
	}
	if reg.Password != reg.PasswordConfirm {
		fields["password_confirmation"] = "does not match password"
	}
	if len(fields) > 0 {
		return nil, apierror.ValidationFields("invalid registration", fields)
	}

	passwordHash, salt, err := hashPassword(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Username:     reg.Username,
		Email:        reg.Email,
		Role:         auth.RoleMember,
		Active:       true,
		PasswordHash: passwordHash,
		Salt:         salt,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if apierror.IsKind(err, apierror.KindConflict) {
			return nil, apierror.ValidationFields("invalid registration",
				map[string]string{"username": "username or email already taken"})
		}
		return nil, err
	}

	return user, nil
}

// passwordProblem returns a description of why the password is too weak, or
// empty if it passes.
func passwordProblem(password string) string {
	if len(password) < minPasswordLength {
		return fmt.Sprintf("must be at least %d characters", minPasswordLength)
	}
	var hasLetter, hasOther bool
	for _, r := range password {
		if unicode.IsLetter(r) {
			hasLetter = true
		} else {
			hasOther = true
		}
	}
	if !hasLetter || !hasOther {
		return "must mix letters with digits or symbols"
	}
	return ""
}

// Authenticate verifies credentials and returns the user on success.
// Deactivated accounts fail the same way bad credentials do.
func (s *service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	if !s.loginLimiter.Allow() {
		return nil, apierror.Authentication("too many attempts, try again later")
	}

	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, apierror.Authentication("invalid credentials")
	}

	ok, err := verifyPassword(password, user.Salt, user.PasswordHash)
	if err != nil || !ok {
		return nil, apierror.Authentication("invalid credentials")
	}
	if !user.Active {
		return nil, apierror.Authentication("invalid credentials")
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.store.GetByID(ctx, id)
}

// ListByRole returns all active users holding the given role.
func (s *service) ListByRole(ctx context.Context, role auth.Role) ([]*User, error) {
	if !role.Valid() {
		return nil, apierror.Validation("unknown role")
	}
	return s.store.ListByRole(ctx, role)
}

// SetRole assigns a new role to a user.
func (s *service) SetRole(ctx context.Context, id uuid.UUID, role auth.Role) (*User, error) {
	if !role.Valid() {
		return nil, apierror.Validation("unknown role")
	}
	if err := s.store.UpdateRole(ctx, id, role); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Deactivate disables an account. The row stays so that borrowing history
// keeps its reference.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.store.SetActive(ctx, id, false)
}
