package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/collabdir/directory-service/internal/api/dto"
	"github.com/collabdir/directory-service/internal/auth"
	"github.com/collabdir/directory-service/internal/service"
	apperrors "github.com/collabdir/directory-service/pkg/util"
)

// AuthHandler exposes login, logout and profile endpoints.
type AuthHandler struct {
	auth          *service.AuthService
	users         *service.UserService
	cookieName    string
	secureCookies bool
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, userService *service.UserService, cookieName string, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		auth:          authService,
		users:         userService,
		cookieName:    cookieName,
		secureCookies: secureCookies,
	}
}

// Login handles POST /api/v1/auth/login. On success the token is returned in
// the body and mirrored into an HTTP-only cookie for browser clients.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	user, token, expiresAt, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	auth.SetSessionCookie(c, h.cookieName, token, expiresAt, h.secureCookies)

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(user),
			"auth": dto.AuthResponse{Token: token, ExpiresAt: expiresAt},
		},
	})
}

// Logout handles POST /api/v1/auth/logout. It clears the cookie and succeeds
// regardless of whether the prior token was valid.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	auth.ClearSessionCookie(c, h.cookieName)
	return c.JSON(fiber.Map{
		"data": fiber.Map{"message": "logged out"},
	})
}

// Profile handles GET /api/v1/auth/profile.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// UpdateProfile handles PATCH /api/v1/auth/profile, a self-service update.
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	current, ok := auth.CurrentUser(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	input, err := updateInputFromRequest(dto.UpdateUserRequest{
		Gender:    req.Gender,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Birthdate: req.Birthdate,
		City:      req.City,
		Country:   req.Country,
		Photo:     req.Photo,
		Category:  req.Category,
	})
	if err != nil {
		return err
	}

	user, err := h.users.UpdateSelf(c.Context(), current.ID, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
