package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/collabdir/directory-service/internal/auth"
	"github.com/collabdir/directory-service/internal/config"
	"github.com/collabdir/directory-service/internal/domain"
	"github.com/collabdir/directory-service/internal/events"
	"github.com/collabdir/directory-service/internal/repository"
	apperrors "github.com/collabdir/directory-service/pkg/util"
)

// LoginThrottle limits login attempts per subject key.
type LoginThrottle interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// AuthService coordinates credential verification and token issuance.
type AuthService struct {
	users         repository.UserRepository
	tokenMgr      *auth.TokenManager
	throttle      LoginThrottle
	dispatcher    events.Dispatcher
	referenceHash string
}

// AuthDependencies bundles the auth service collaborators.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Throttle   LoginThrottle
	Dispatcher events.Dispatcher
}

// NewAuthService builds the service. The reference hash gives the
// unknown-email path a bcrypt compare comparable in cost to the real one.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	referenceHash, err := auth.HashPassword(uuid.NewString(), cfg.Auth.BcryptCost)
	if err != nil {
		referenceHash = ""
	}
	return &AuthService{
		users:         deps.UserRepo,
		tokenMgr:      auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
		throttle:      deps.Throttle,
		dispatcher:    deps.Dispatcher,
		referenceHash: referenceHash,
	}
}

// Login authenticates a collaborator by email and password. Unknown email
// and wrong password fail identically so callers cannot tell which occurred.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, email)
		if err == nil && !allowed {
			return nil, "", time.Time{}, apperrors.NewTooManyRequests("too many login attempts")
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Equalize work with the known-email path.
			_ = auth.ComparePassword(s.referenceHash, password)
			s.publishLogin(ctx, events.EventLoginFailed, "", email)
			return nil, "", time.Time{}, invalidCredentials()
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.publishLogin(ctx, events.EventLoginFailed, user.ID, email)
		return nil, "", time.Time{}, invalidCredentials()
	}

	token, expiresAt, err := s.tokenMgr.Generate(user)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	if s.throttle != nil {
		_ = s.throttle.Reset(ctx, email)
	}
	s.publishLogin(ctx, events.EventLoginSucceeded, user.ID, email)

	user.PasswordHash = ""
	return user, token, expiresAt, nil
}

// VerifyToken validates a token and returns its claims.
func (s *AuthService) VerifyToken(token string) (*auth.Claims, error) {
	return s.tokenMgr.Parse(token)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publishLogin(ctx context.Context, eventType events.EventType, userID, email string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Email:     email,
		Timestamp: time.Now(),
	})
}

func invalidCredentials() error {
	return apperrors.NewUnauthorized("invalid email or password")
}
