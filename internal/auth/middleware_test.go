package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/collabdir/directory-service/internal/domain"
	apperrors "github.com/collabdir/directory-service/pkg/util"
)

// memoryUserRepo implements the subset of repository.UserRepository the
// middleware needs, counting lookups.
type memoryUserRepo struct {
	mu           sync.Mutex
	users        map[string]*domain.User
	getByIDCalls int
}

func newMemoryUserRepo(users ...*domain.User) *memoryUserRepo {
	repo := &memoryUserRepo{users: make(map[string]*domain.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *memoryUserRepo) Create(context.Context, *domain.User) error { return nil }
func (r *memoryUserRepo) Update(context.Context, *domain.User) error { return nil }
func (r *memoryUserRepo) Delete(context.Context, string) error       { return nil }

func (r *memoryUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getByIDCalls++
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

func (r *memoryUserRepo) List(context.Context) ([]*domain.User, error) { return nil, nil }

func (r *memoryUserRepo) lookupCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getByIDCalls
}

func newTestApp(middleware *Middleware, adminOnly bool) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) (err error) {
		defer func() {
			if err != nil {
				de := apperrors.ToDomainError(err)
				c.Status(de.HTTPStatus)
				err = c.JSON(fiber.Map{"error": fiber.Map{"code": de.Code, "message": de.Message}})
			}
		}()
		return c.Next()
	})

	guards := []fiber.Handler{middleware.Handle}
	if adminOnly {
		guards = append(guards, RequireAdmin())
	}
	guards = append(guards, func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return apperrors.NewUnauthorized("no principal")
		}
		return c.JSON(fiber.Map{"email": user.Email})
	})
	app.Get("/protected", guards...)
	return app
}

func TestMiddleware_NoToken(t *testing.T) {
	t.Parallel()

	repo := newMemoryUserRepo()
	tm := NewTokenManager("secret", time.Hour)
	app := newTestApp(NewMiddleware(tm, repo, "token"), false)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, repo.lookupCount(), "directory must not be consulted without a token")
}

func TestMiddleware_HeaderToken(t *testing.T) {
	t.Parallel()

	alice := &domain.User{ID: "u1", Email: "alice@example.com"}
	repo := newMemoryUserRepo(alice)
	tm := NewTokenManager("secret", time.Hour)
	app := newTestApp(NewMiddleware(tm, repo, "token"), false)

	token, _, err := tm.Generate(alice)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMiddleware_CookieFallback(t *testing.T) {
	t.Parallel()

	alice := &domain.User{ID: "u1", Email: "alice@example.com"}
	repo := newMemoryUserRepo(alice)
	tm := NewTokenManager("secret", time.Hour)
	app := newTestApp(NewMiddleware(tm, repo, "token"), false)

	token, _, err := tm.Generate(alice)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMiddleware_HeaderWinsOverCookie(t *testing.T) {
	t.Parallel()

	alice := &domain.User{ID: "u1", Email: "alice@example.com"}
	repo := newMemoryUserRepo(alice)
	tm := NewTokenManager("secret", time.Hour)
	app := newTestApp(NewMiddleware(tm, repo, "token"), false)

	headerToken, _, err := tm.Generate(alice)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+headerToken)
	req.AddCookie(&http.Cookie{Name: "token", Value: "garbage-cookie-token"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMiddleware_InvalidCookieTokenClearsCookie(t *testing.T) {
	t.Parallel()

	repo := newMemoryUserRepo()
	tm := NewTokenManager("secret", time.Hour)
	app := newTestApp(NewMiddleware(tm, repo, "token"), false)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "garbage"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cleared := false
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "token" && cookie.Value == "" {
			cleared = true
		}
	}
	require.True(t, cleared, "invalid cookie token must be cleared")
}

func TestMiddleware_InvalidHeaderTokenKeepsCookie(t *testing.T) {
	t.Parallel()

	repo := newMemoryUserRepo()
	tm := NewTokenManager("secret", time.Hour)
	app := newTestApp(NewMiddleware(tm, repo, "token"), false)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer garbage")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, resp.Cookies(), "header-sourced failures must not touch the cookie")
}

func TestMiddleware_DeletedAccountBehindValidToken(t *testing.T) {
	t.Parallel()

	ghost := &domain.User{ID: "gone", Email: "ghost@example.com"}
	repo := newMemoryUserRepo()
	tm := NewTokenManager("secret", time.Hour)
	app := newTestApp(NewMiddleware(tm, repo, "token"), false)

	token, _, err := tm.Generate(ghost)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, 1, repo.lookupCount())
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	admin := &domain.User{ID: "a1", Email: "admin@example.com", IsAdmin: true}
	member := &domain.User{ID: "m1", Email: "member@example.com"}
	repo := newMemoryUserRepo(admin, member)
	tm := NewTokenManager("secret", time.Hour)
	app := newTestApp(NewMiddleware(tm, repo, "token"), true)

	cases := []struct {
		name       string
		user       *domain.User
		wantStatus int
	}{
		{name: "admin allowed", user: admin, wantStatus: http.StatusOK},
		{name: "non-admin forbidden", user: member, wantStatus: http.StatusForbidden},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			token, _, err := tm.Generate(tc.user)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}

func TestRequireAdmin_NoPrincipal(t *testing.T) {
	t.Parallel()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": de.Code})
		},
	})
	app.Get("/admin", RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
