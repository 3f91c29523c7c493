package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/asafe/user-service/internal/auth"
	"github.com/asafe/user-service/internal/config"
	"github.com/asafe/user-service/internal/domain"
	"github.com/asafe/user-service/internal/events"
	"github.com/asafe/user-service/internal/notification"
	"github.com/asafe/user-service/internal/repository"
	apperrors "github.com/asafe/user-service/pkg/util"
)

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, BcryptCost: bcrypt.MinCost, HashConcurrency: 2},
	}
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handler(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	repo     *repository.MemoryUserRepository
	authSvc  *AuthService
	userSvc  *UserService
	recorded *recordedEvents
}

func newFixture(t *testing.T, cfg config.Config) *fixture {
	t.Helper()
	repo := repository.NewMemoryUserRepository()
	hasher := auth.NewHasher(cfg.Auth.BcryptCost, cfg.Auth.HashConcurrency)
	dispatcher := events.NewInMemoryDispatcher(zaptest.NewLogger(t))

	rec := &recordedEvents{}
	for _, et := range []events.EventType{events.EventUserRegistered, events.EventUserUpdated, events.EventUserDeleted} {
		dispatcher.Subscribe(et, rec.handler)
	}

	return &fixture{
		repo: repo,
		authSvc: NewAuthService(cfg, AuthDependencies{
			UserRepo:   repo,
			Hasher:     hasher,
			Dispatcher: dispatcher,
			Logger:     zaptest.NewLogger(t),
		}),
		userSvc:  NewUserService(repo, hasher, dispatcher),
		recorded: rec,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	user, err := f.authSvc.RegisterUser(ctx, RegisterInput{Email: " Alice@Example.com ", Name: "Alice", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.NotEqual(t, "password123", user.PasswordHash)

	_, token, exp, err := f.authSvc.LoginUser(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	principal, err := f.authSvc.TokenManager().Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.ID)
	assert.Equal(t, domain.RoleUser, principal.Role)

	assert.Equal(t, []events.EventType{events.EventUserRegistered}, f.recorded.types())
}

func TestLoginFailuresAreUniform(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	_, err := f.authSvc.RegisterUser(ctx, RegisterInput{Email: "bob@example.com", Name: "Bob", Password: "password123"})
	require.NoError(t, err)

	_, _, _, wrongPassword := f.authSvc.LoginUser(ctx, "bob@example.com", "nope-nope")
	_, _, _, unknownEmail := f.authSvc.LoginUser(ctx, "nobody@example.com", "password123")

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.True(t, apperrors.IsKind(wrongPassword, apperrors.KindUnauthorized))
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	_, err := f.authSvc.RegisterUser(ctx, RegisterInput{Email: "dup@example.com", Name: "A", Password: "password123"})
	require.NoError(t, err)
	_, err = f.authSvc.RegisterUser(ctx, RegisterInput{Email: "DUP@example.com", Name: "B", Password: "password123"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestRegisterRoleSelection(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, testConfig())
	_, err := f.authSvc.RegisterUser(ctx, RegisterInput{Email: "a@example.com", Name: "A", Password: "password123", Role: domain.RoleAdmin})
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	cfg := testConfig()
	cfg.Auth.AllowRoleOnRegister = true
	f = newFixture(t, cfg)
	user, err := f.authSvc.RegisterUser(ctx, RegisterInput{Email: "a@example.com", Name: "A", Password: "password123", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	require.NoError(t, f.authSvc.EnsureAdmin(ctx, "root@example.com", "password123", "Root"))
	require.NoError(t, f.authSvc.EnsureAdmin(ctx, "root@example.com", "password123", "Root"))

	admin, err := f.repo.GetByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	_, token, _, err := f.authSvc.LoginUser(ctx, "root@example.com", "password123")
	require.NoError(t, err)
	principal, err := f.authSvc.TokenManager().Verify(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, principal.Role)
}

func TestUserServiceLifecycle(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()
	admin := &domain.Principal{ID: 100, Role: domain.RoleAdmin}

	user, err := f.userSvc.Create(ctx, admin, CreateUserInput{Email: "carol@example.com", Name: "Carol", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)

	got, err := f.userSvc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Carol", got.Name)

	name := "  Caroline "
	role := domain.RoleAdmin
	updated, err := f.userSvc.Update(ctx, admin, user.ID, domain.UserUpdate{Name: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "Caroline", updated.Name)
	assert.Equal(t, domain.RoleAdmin, updated.Role)

	unchanged, err := f.userSvc.Update(ctx, admin, user.ID, domain.UserUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "Caroline", unchanged.Name)

	bad := domain.Role("ROOT")
	_, err = f.userSvc.Update(ctx, admin, user.ID, domain.UserUpdate{Role: &bad})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	require.NoError(t, f.userSvc.Delete(ctx, admin, user.ID))
	assert.True(t, apperrors.IsKind(f.userSvc.Delete(ctx, admin, user.ID), apperrors.KindNotFound))

	_, err = f.userSvc.Update(ctx, admin, user.ID, domain.UserUpdate{Name: &name})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	assert.Equal(t, []events.EventType{events.EventUserRegistered, events.EventUserUpdated, events.EventUserDeleted}, f.recorded.types())
	f.recorded.mu.Lock()
	defer f.recorded.mu.Unlock()
	require.NotNil(t, f.recorded.events[0].Actor)
	assert.EqualValues(t, 100, f.recorded.events[0].Actor.UserID)
}

type stubBroadcaster struct {
	mu       sync.Mutex
	messages []string
}

func (s *stubBroadcaster) Broadcast(_ context.Context, message string) notification.BroadcastResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
	return notification.BroadcastResult{Delivered: 1}
}

func TestNotificationServiceForwardsUserEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	stub := &stubBroadcaster{}

	svc := NewNotificationService(stub, dispatcher, nil, zaptest.NewLogger(t), config.NotificationConfig{BroadcastUserEvents: true})
	svc.RegisterHandlers()

	result := svc.Broadcast(context.Background(), "hello")
	assert.Equal(t, 1, result.Delivered)

	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventUserDeleted, 5, nil, nil)))

	require.Len(t, stub.messages, 2)
	assert.Equal(t, "hello", stub.messages[0])
	assert.Contains(t, stub.messages[1], `"type":"user_deleted"`)
	assert.Contains(t, stub.messages[1], `"user_id":5`)
}

func TestNotificationServiceIgnoresEventsWhenDisabled(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	stub := &stubBroadcaster{}

	svc := NewNotificationService(stub, dispatcher, nil, nil, config.NotificationConfig{})
	svc.RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventUserDeleted, 5, nil, nil)))
	assert.Empty(t, stub.messages)
}

type recordingStore struct {
	key, contentType string
	body             []byte
	err              error
}

func (s *recordingStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.key, s.contentType = key, contentType
	s.body, _ = io.ReadAll(body)
	return "https://bucket.s3.us-east-1.amazonaws.com/" + key, nil
}

func TestUploadProfilePicture(t *testing.T) {
	store := &recordingStore{}
	svc := NewUploadService(store, 1024, zaptest.NewLogger(t))
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	principal := &domain.Principal{ID: 1, Role: domain.RoleUser}

	url, err := svc.UploadProfilePicture(context.Background(), principal, UploadInput{
		FileName:    "../../etc/me.png",
		ContentType: "image/png",
		Size:        3,
		Body:        bytes.NewReader([]byte("png")),
	})
	require.NoError(t, err)
	assert.Equal(t, "profile-pictures/1700000000000-me.png", store.key)
	assert.Equal(t, "image/png", store.contentType)
	assert.Equal(t, []byte("png"), store.body)
	assert.Equal(t, "https://bucket.s3.us-east-1.amazonaws.com/profile-pictures/1700000000000-me.png", url)
}

func TestUploadProfilePictureRejections(t *testing.T) {
	principal := &domain.Principal{ID: 1, Role: domain.RoleUser}
	svc := NewUploadService(&recordingStore{}, 10, nil)

	_, err := svc.UploadProfilePicture(context.Background(), principal, UploadInput{FileName: "a.gif", ContentType: "image/gif", Size: 1, Body: bytes.NewReader(nil)})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = svc.UploadProfilePicture(context.Background(), principal, UploadInput{FileName: "a.png", ContentType: "image/png", Size: 11, Body: bytes.NewReader(nil)})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	failing := NewUploadService(&recordingStore{err: errors.New("s3 down")}, 10, nil)
	_, err = failing.UploadProfilePicture(context.Background(), principal, UploadInput{FileName: "a.jpg", ContentType: "image/jpeg", Size: 1, Body: bytes.NewReader([]byte("x"))})
	assert.True(t, apperrors.IsKind(err, apperrors.KindInternal))
}

func TestBlankNamesAreRejected(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()
	admin := &domain.Principal{ID: 100, Role: domain.RoleAdmin}

	_, err := f.authSvc.RegisterUser(ctx, RegisterInput{Email: "blank@example.com", Name: "   ", Password: "password123"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	_, err = f.userSvc.Create(ctx, admin, CreateUserInput{Email: "blank@example.com", Name: "\t", Password: "password123"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	user, err := f.userSvc.Create(ctx, admin, CreateUserInput{Email: "dave@example.com", Name: "Dave", Password: "password123"})
	require.NoError(t, err)
	blank := "  "
	_, err = f.userSvc.Update(ctx, admin, user.ID, domain.UserUpdate{Name: &blank})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	got, err := f.userSvc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dave", got.Name)
}

func TestDummyDigestRetriesAfterFailure(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	working := f.authSvc.hasher
	f.authSvc.hasher = auth.NewHasher(bcrypt.MaxCost+1, 1)
	assert.Empty(t, f.authSvc.dummyDigest(ctx))

	f.authSvc.hasher = working
	digest := f.authSvc.dummyDigest(ctx)
	require.NotEmpty(t, digest)
	assert.Equal(t, digest, f.authSvc.dummyDigest(ctx))
}
