package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/collabdir/directory-service/internal/api/dto"
	"github.com/collabdir/directory-service/internal/domain"
	"github.com/collabdir/directory-service/internal/service"
	apperrors "github.com/collabdir/directory-service/pkg/util"
)

// UsersHandler exposes collaborator CRUD endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// Create handles POST /api/v1/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	birthdate, err := time.Parse(dto.BirthdateLayout, req.Birthdate)
	if err != nil {
		return apperrors.NewValidationError("invalid birthdate", nil)
	}

	user, err := h.users.Create(c.Context(), service.UserCreateInput{
		Gender:    domain.Gender(req.Gender),
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Birthdate: birthdate,
		City:      req.City,
		Country:   req.Country,
		Photo:     req.Photo,
		Category:  domain.Category(req.Category),
		IsAdmin:   req.IsAdmin,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// List handles GET /api/v1/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.users.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponses(users)})
}

// Get handles GET /api/v1/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Update handles PUT /api/v1/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	input, err := updateInputFromRequest(req)
	if err != nil {
		return err
	}

	user, err := h.users.Update(c.Context(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Delete handles DELETE /api/v1/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	if err := h.users.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// updateInputFromRequest converts a wire update payload into the service
// input, parsing the birthdate when present.
func updateInputFromRequest(req dto.UpdateUserRequest) (service.UserUpdateInput, error) {
	input := service.UserUpdateInput{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		City:      req.City,
		Country:   req.Country,
		Photo:     req.Photo,
		IsAdmin:   req.IsAdmin,
	}
	if req.Gender != nil {
		gender := domain.Gender(*req.Gender)
		input.Gender = &gender
	}
	if req.Category != nil {
		category := domain.Category(*req.Category)
		input.Category = &category
	}
	if req.Birthdate != nil {
		birthdate, err := time.Parse(dto.BirthdateLayout, *req.Birthdate)
		if err != nil {
			return service.UserUpdateInput{}, apperrors.NewValidationError("invalid birthdate", nil)
		}
		input.Birthdate = &birthdate
	}
	return input, nil
}
