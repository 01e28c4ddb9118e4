package store

import (
	"context"
	"strings"
	"sync"

	"equitygate/internal/user/models"
	id "equitygate/pkg/domain"
	"equitygate/pkg/platform/sentinel"
)

// InMemory keeps users in a map for unit tests and local runs. Emails are
// unique case-insensitively, matching the schema.
type InMemory struct {
	mu      sync.RWMutex
	users   map[id.UserID]*models.User
	byEmail map[string]id.UserID
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:   make(map[id.UserID]*models.User),
		byEmail: make(map[string]id.UserID),
	}
}

func (s *InMemory) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(user.Email)
	if _, exists := s.byEmail[email]; exists {
		return sentinel.ErrConflict
	}
	s.users[user.ID] = cloneUser(user)
	s.byEmail[email] = user.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, exists := s.users[userID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return cloneUser(user), nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, exists := s.byEmail[strings.ToLower(email)]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return cloneUser(s.users[userID]), nil
}

func (s *InMemory) Save(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func cloneUser(u *models.User) *models.User {
	copied := *u
	copied.Roles = append([]string(nil), u.Roles...)
	return &copied
}
