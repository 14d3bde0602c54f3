package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/collabdir/directory-service/internal/domain"
	"github.com/collabdir/directory-service/internal/repository"
	apperrors "github.com/collabdir/directory-service/pkg/util"
)

const userKey = "auth_user"

// Middleware validates bearer tokens and loads the caller's user record.
// Tokens are read from the Authorization header first and from the session
// cookie as a fallback.
type Middleware struct {
	tokens     *TokenManager
	users      repository.UserRepository
	cookieName string
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, users repository.UserRepository, cookieName string) *Middleware {
	if cookieName == "" {
		cookieName = "token"
	}
	return &Middleware{tokens: tokens, users: users, cookieName: cookieName}
}

// Handle enforces authentication for protected routes. It never touches the
// request body; it either attaches the resolved user or short-circuits.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	token, fromCookie := m.extractToken(c)
	if token == "" {
		return apperrors.NewUnauthorized("authentication required")
	}

	claims, err := m.tokens.Parse(token)
	if err != nil {
		// A permanently invalid cookie would otherwise wedge the client.
		if fromCookie {
			ClearSessionCookie(c, m.cookieName)
		}
		return apperrors.NewUnauthorized("authentication failed")
	}

	user, err := m.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if fromCookie {
				ClearSessionCookie(c, m.cookieName)
			}
			return apperrors.NewUnauthorized("authentication failed")
		}
		return apperrors.MapError(err)
	}

	c.Locals(userKey, user)
	return c.Next()
}

// extractToken returns the token and whether it came from the cookie. The
// Authorization header wins when both are present.
func (m *Middleware) extractToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1]), false
		}
	}
	if cookie := c.Cookies(m.cookieName); cookie != "" {
		return cookie, true
	}
	return "", false
}

// CurrentUser retrieves the authenticated user attached by the middleware.
func CurrentUser(c *fiber.Ctx) (*domain.User, bool) {
	val := c.Locals(userKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}

// SetSessionCookie writes the token cookie consumed by browser clients.
func SetSessionCookie(c *fiber.Ctx, name, token string, expiresAt time.Time, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSessionCookie instructs the client to discard the token cookie.
func ClearSessionCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
