package memory

import (
	"context"
	"sync"
	"time"

	"artmarket/internal/domain"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

func (r *UserRepository) Upsert(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.users[user.ID]; ok {
		existing.Email = user.Email
		existing.DisplayName = user.DisplayName
		existing.UpdatedAt = time.Now()
		return nil
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "user", ID: id}
	}
	clone := *user
	return &clone, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role domain.UserRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return &domain.NotFoundError{Kind: "user", ID: id}
	}
	user.Role = role
	user.UpdatedAt = time.Now()
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return &domain.NotFoundError{Kind: "user", ID: id}
	}
	delete(r.users, id)
	return nil
}
