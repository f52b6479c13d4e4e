package accounts

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"libretto/internal/apierror"
	"libretto/internal/auth"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It enforces the same uniqueness rules as the PostgreSQL schema.
type MemoryStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[uuid.UUID]*User)}
}

func (s *MemoryStore) CreateUser(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return apierror.Conflict("duplicate value violates a uniqueness constraint")
		}
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, apierror.NotFound(fmt.Sprintf("user %s not found", id))
	}
	copied := *user
	return &copied, nil
}

func (s *MemoryStore) GetByUsername(_ context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apierror.NotFound("user not found")
}

func (s *MemoryStore) ListByRole(_ context.Context, role auth.Role) ([]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []*User
	for _, user := range s.users {
		if user.Role == role && user.Active {
			copied := *user
			users = append(users, &copied)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *MemoryStore) UpdateRole(_ context.Context, id uuid.UUID, role auth.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return apierror.NotFound(fmt.Sprintf("user %s not found", id))
	}
	user.Role = role
	user.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return apierror.NotFound(fmt.Sprintf("user %s not found", id))
	}
	user.Active = active
	user.UpdatedAt = time.Now()
	return nil
}
