package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/asafe/user-service/internal/domain"
	apperrors "github.com/asafe/user-service/pkg/util"
)

// MemoryUserRepository keeps users in process memory. It backs the service
// when no database is configured and mirrors the Postgres error kinds.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]domain.User
	now    func() time.Time
}

// NewMemoryUserRepository returns an empty store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[int64]domain.User), now: time.Now}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(user.Email, 0) {
		return apperrors.NewConflict("A record with this field already exists.", map[string]any{"constraint": "users_email_key"})
	}

	r.nextID++
	now := r.now().UTC()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, apperrors.NewNotFound("user", nil)
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, apperrors.NewNotFound("user", nil)
}

func (r *MemoryUserRepository) Update(_ context.Context, id int64, update domain.UserUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, apperrors.NewNotFound("user", nil)
	}
	if update.Email != nil {
		if r.emailTaken(*update.Email, id) {
			return nil, apperrors.NewConflict("A record with this field already exists.", map[string]any{"constraint": "users_email_key"})
		}
		user.Email = *update.Email
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Role != nil {
		user.Role = *update.Role
	}
	user.UpdatedAt = r.now().UTC()
	r.users[id] = user
	return &user, nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryUserRepository) Ping(context.Context) error {
	return nil
}

func (r *MemoryUserRepository) emailTaken(email string, exceptID int64) bool {
	for id, user := range r.users {
		if id != exceptID && strings.EqualFold(user.Email, email) {
			return true
		}
	}
	return false
}
