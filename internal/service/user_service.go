package service

import (
	"context"
	"strings"

	"github.com/asafe/user-service/internal/auth"
	"github.com/asafe/user-service/internal/domain"
	"github.com/asafe/user-service/internal/events"
	"github.com/asafe/user-service/internal/repository"
	apperrors "github.com/asafe/user-service/pkg/util"
)

// CreateUserInput carries an administrator-created account.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	Role     domain.Role
}

// UserService manages user records on behalf of authenticated callers.
// Role checks happen in the HTTP guards before these methods run.
type UserService struct {
	users      repository.UserRepository
	hasher     *auth.Hasher
	dispatcher events.Dispatcher
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, hasher *auth.Hasher, dispatcher events.Dispatcher) *UserService {
	return &UserService{users: users, hasher: hasher, dispatcher: dispatcher}
}

// Create adds a user with the requested role (USER when empty).
func (s *UserService) Create(ctx context.Context, actor *domain.Principal, in CreateUserInput) (*domain.User, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}

	user, err := createUser(ctx, s.users, s.hasher, in.Email, in.Name, in.Password, role)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.dispatcher, events.NewEvent(events.EventUserRegistered, user.ID, actorOf(actor), userPayload(user)))
	return user, nil
}

// Get loads a user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// Update applies a partial update.
func (s *UserService) Update(ctx context.Context, actor *domain.Principal, id int64, update domain.UserUpdate) (*domain.User, error) {
	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		update.Email = &email
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, errBlankName
		}
		update.Name = &name
	}
	if update.Role != nil && !update.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": *update.Role})
	}

	var (
		user *domain.User
		err  error
	)
	if update.Empty() {
		user, err = s.users.GetByID(ctx, id)
	} else {
		user, err = s.users.Update(ctx, id, update)
	}
	if err != nil {
		return nil, err
	}

	if !update.Empty() {
		publish(ctx, s.dispatcher, events.NewEvent(events.EventUserUpdated, user.ID, actorOf(actor), userPayload(user)))
	}
	return user, nil
}

// Delete removes a user.
func (s *UserService) Delete(ctx context.Context, actor *domain.Principal, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	publish(ctx, s.dispatcher, events.NewEvent(events.EventUserDeleted, id, actorOf(actor), nil))
	return nil
}

func actorOf(p *domain.Principal) *events.Actor {
	if p == nil {
		return nil
	}
	return &events.Actor{UserID: p.ID, Role: p.Role}
}
