package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/asafe/user-service/internal/auth"
	"github.com/asafe/user-service/internal/config"
	"github.com/asafe/user-service/internal/domain"
	"github.com/asafe/user-service/internal/events"
	"github.com/asafe/user-service/internal/repository"
	apperrors "github.com/asafe/user-service/pkg/util"
)

const invalidCredentials = "Invalid email or password"

// RegisterInput carries a self-service registration.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
	Role     domain.Role
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users               repository.UserRepository
	hasher              *auth.Hasher
	tokenMgr            *auth.TokenManager
	dispatcher          events.Dispatcher
	logger              *zap.Logger
	allowRoleOnRegister bool

	dummyMu   sync.Mutex
	dummyHash string
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Hasher     *auth.Hasher
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:               deps.UserRepo,
		hasher:              deps.Hasher,
		tokenMgr:            auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		dispatcher:          deps.Dispatcher,
		logger:              logger,
		allowRoleOnRegister: cfg.Auth.AllowRoleOnRegister,
	}
}

// RegisterUser creates a new account. Choosing a role other than USER is
// only allowed when enabled in configuration.
func (s *AuthService) RegisterUser(ctx context.Context, in RegisterInput) (*domain.User, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && !s.allowRoleOnRegister {
		return nil, apperrors.NewForbidden("Role assignment requires an administrator")
	}

	user, err := createUser(ctx, s.users, s.hasher, in.Email, in.Name, in.Password, role)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.dispatcher, events.NewEvent(events.EventUserRegistered, user.ID, nil, userPayload(user)))
	return user, nil
}

// LoginUser authenticates by email and password and returns a signed token.
// Unknown emails and wrong passwords produce the same error.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, "", time.Time{}, err
		}
		// burn comparable time so response latency does not reveal unknown emails
		s.hasher.Verify(ctx, password, s.dummyDigest(ctx))
		return nil, "", time.Time{}, apperrors.NewUnauthorized(invalidCredentials)
	}
	if !s.hasher.Verify(ctx, password, user.PasswordHash) {
		return nil, "", time.Time{}, apperrors.NewUnauthorized(invalidCredentials)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// EnsureAdmin creates an ADMIN account for email unless one already exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) error {
	existing, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		if existing.Role != domain.RoleAdmin {
			s.logger.Warn("bootstrap admin email belongs to a non-admin account", zap.Int64("user_id", existing.ID))
		}
		return nil
	case !apperrors.IsKind(err, apperrors.KindNotFound):
		return err
	}

	user, err := createUser(ctx, s.users, s.hasher, email, name, password, domain.RoleAdmin)
	if err != nil {
		return err
	}
	s.logger.Info("bootstrap admin created", zap.Int64("user_id", user.ID))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// dummyDigest lazily hashes a throwaway password; a failed attempt is
// retried on the next call.
func (s *AuthService) dummyDigest(ctx context.Context) string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyHash == "" {
		digest, err := s.hasher.Hash(ctx, "not-a-real-password")
		if err != nil {
			s.logger.Warn("dummy digest unavailable", zap.Error(err))
			return ""
		}
		s.dummyHash = digest
	}
	return s.dummyHash
}

func createUser(ctx context.Context, users repository.UserRepository, hasher *auth.Hasher, email, name, password string, role domain.Role) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errBlankName
	}

	hash, err := hasher.Hash(ctx, password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Email:        normalizeEmail(email),
		Name:         name,
		PasswordHash: hash,
		Role:         role,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

var errBlankName = apperrors.NewValidationError("request body failed validation", map[string]any{"name": "notblank"})

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userPayload(user *domain.User) events.UserPayload {
	return events.UserPayload{Email: user.Email, Name: user.Name, Role: user.Role}
}

func publish(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	_ = dispatcher.Publish(ctx, event)
}
