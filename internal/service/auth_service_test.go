package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/collabdir/directory-service/internal/auth"
	"github.com/collabdir/directory-service/internal/config"
	"github.com/collabdir/directory-service/internal/domain"
	"github.com/collabdir/directory-service/internal/events"
	apperrors "github.com/collabdir/directory-service/pkg/util"
)

// memoryUserRepo is an in-memory repository.UserRepository for service tests.
type memoryUserRepo struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID int
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*domain.User)}
}

func (r *memoryUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = fmt.Sprintf("user-%03d", r.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memoryUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *user
	copied.UpdatedAt = time.Now()
	r.users[user.ID] = &copied
	return nil
}

func (r *memoryUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.users, id)
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	copied.PasswordHash = ""
	return &copied, nil
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, user := range r.users {
		copied := *user
		copied.PasswordHash = ""
		out = append(out, &copied)
	}
	return out, nil
}

// fakeThrottle is a deterministic LoginThrottle.
type fakeThrottle struct {
	mu      sync.Mutex
	allowed bool
	resets  []string
}

func (f *fakeThrottle) Allow(context.Context, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allowed, nil
}

func (f *fakeThrottle) Reset(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, key)
	return nil
}

// recordingDispatcher captures published events.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, event := range d.events {
		out = append(out, event.Type)
	}
	return out
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			BcryptCost:            bcrypt.MinCost,
		},
	}
}

func seedAlice(t *testing.T, repo *memoryUserRepo) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword("correct-secret", bcrypt.MinCost)
	require.NoError(t, err)
	alice := &domain.User{
		Gender:       domain.GenderFemale,
		Firstname:    "Alice",
		Lastname:     "Martin",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Category:     domain.CategoryTechnique,
	}
	require.NoError(t, repo.Create(context.Background(), alice))
	return alice
}

func TestAuthService_LoginSuccess(t *testing.T) {
	t.Parallel()

	repo := newMemoryUserRepo()
	alice := seedAlice(t, repo)
	dispatcher := &recordingDispatcher{}
	svc := NewAuthService(testConfig(), AuthDependencies{UserRepo: repo, Dispatcher: dispatcher})

	user, token, expiresAt, err := svc.Login(context.Background(), "Alice@Example.com", "correct-secret")
	require.NoError(t, err)
	require.Equal(t, alice.ID, user.ID)
	require.Empty(t, user.PasswordHash, "login result must never carry the hash")
	require.NotEmpty(t, token)
	require.True(t, expiresAt.After(time.Now()))

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	require.Equal(t, alice.ID, claims.UserID)
	require.Equal(t, "alice@example.com", claims.Email)
	require.False(t, claims.IsAdmin)

	require.Contains(t, dispatcher.types(), events.EventLoginSucceeded)
}

func TestAuthService_LoginFailuresAreUniform(t *testing.T) {
	t.Parallel()

	repo := newMemoryUserRepo()
	seedAlice(t, repo)
	svc := NewAuthService(testConfig(), AuthDependencies{UserRepo: repo})

	_, _, _, unknownErr := svc.Login(context.Background(), "nobody@example.com", "whatever")
	_, _, _, wrongErr := svc.Login(context.Background(), "alice@example.com", "wrong-secret")

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)

	var unknownDomain, wrongDomain *apperrors.DomainError
	require.True(t, errors.As(unknownErr, &unknownDomain))
	require.True(t, errors.As(wrongErr, &wrongDomain))
	require.Equal(t, unknownDomain.Code, wrongDomain.Code)
	require.Equal(t, unknownDomain.Message, wrongDomain.Message)
	require.Equal(t, unknownDomain.HTTPStatus, wrongDomain.HTTPStatus)
}

func TestAuthService_ThrottleBlocksBeforeLookup(t *testing.T) {
	t.Parallel()

	repo := newMemoryUserRepo()
	seedAlice(t, repo)
	throttle := &fakeThrottle{allowed: false}
	svc := NewAuthService(testConfig(), AuthDependencies{UserRepo: repo, Throttle: throttle})

	_, _, _, err := svc.Login(context.Background(), "alice@example.com", "correct-secret")
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	require.Equal(t, "RATE_LIMITED", domainErr.Code)
}

func TestAuthService_ThrottleResetOnSuccess(t *testing.T) {
	t.Parallel()

	repo := newMemoryUserRepo()
	seedAlice(t, repo)
	throttle := &fakeThrottle{allowed: true}
	svc := NewAuthService(testConfig(), AuthDependencies{UserRepo: repo, Throttle: throttle})

	_, _, _, err := svc.Login(context.Background(), "alice@example.com", "correct-secret")
	require.NoError(t, err)
	require.Equal(t, []string{"alice@example.com"}, throttle.resets)
}

func TestAuthService_VerifyTokenRejectsGarbage(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(testConfig(), AuthDependencies{UserRepo: newMemoryUserRepo()})
	_, err := svc.VerifyToken("not-a-token")
	require.Error(t, err)
}
