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

// UserService coordinates collaborator CRUD flows.
type UserService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	bcryptCost int
}

// UserDependencies bundles the user service collaborators.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
}

// NewUserService builds the service.
func NewUserService(cfg config.Config, deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// UserCreateInput describes collaborator creation payload.
type UserCreateInput struct {
	Gender    domain.Gender
	Firstname string
	Lastname  string
	Email     string
	Password  string
	Phone     string
	Birthdate time.Time
	City      string
	Country   string
	Photo     string
	Category  domain.Category
	IsAdmin   bool
}

// UserUpdateInput describes a partial update; nil fields are left untouched.
type UserUpdateInput struct {
	Gender    *domain.Gender
	Firstname *string
	Lastname  *string
	Email     *string
	Password  *string
	Phone     *string
	Birthdate *time.Time
	City      *string
	Country   *string
	Photo     *string
	Category  *domain.Category
	IsAdmin   *bool
}

// Create registers a new collaborator. Emails are stored lowercased and
// must be unique.
func (s *UserService) Create(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already in use", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	user := &domain.User{
		Gender:       input.Gender,
		Firstname:    input.Firstname,
		Lastname:     input.Lastname,
		Email:        email,
		PasswordHash: hash,
		Phone:        input.Phone,
		Birthdate:    input.Birthdate,
		City:         input.City,
		Country:      input.Country,
		Photo:        input.Photo,
		Category:     input.Category,
		IsAdmin:      input.IsAdmin,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventUserCreated, user.ID, user.Email, nil)

	user.PasswordHash = ""
	return user, nil
}

// List returns all collaborators, hashes excluded.
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// GetByID returns a single collaborator.
func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Update applies a partial update on behalf of an administrator.
func (s *UserService) Update(ctx context.Context, id string, input UserUpdateInput) (*domain.User, error) {
	return s.update(ctx, id, input, false)
}

// UpdateSelf applies a partial update on behalf of the collaborator
// themselves; the admin flag may not be changed.
func (s *UserService) UpdateSelf(ctx context.Context, id string, input UserUpdateInput) (*domain.User, error) {
	if input.IsAdmin != nil {
		return nil, apperrors.NewForbidden("admin flag may not be self-assigned")
	}
	return s.update(ctx, id, input, true)
}

func (s *UserService) update(ctx context.Context, id string, input UserUpdateInput, selfService bool) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}

	// GetByID does not load the stored hash; recover it through the
	// authentication lookup so an update without a password change keeps it.
	if withHash, err := s.users.GetByEmail(ctx, user.Email); err == nil && withHash.ID == user.ID {
		user.PasswordHash = withHash.PasswordHash
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	fields := make([]string, 0, 12)
	if input.Gender != nil {
		user.Gender = *input.Gender
		fields = append(fields, "gender")
	}
	if input.Firstname != nil {
		user.Firstname = *input.Firstname
		fields = append(fields, "firstname")
	}
	if input.Lastname != nil {
		user.Lastname = *input.Lastname
		fields = append(fields, "lastname")
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != user.Email {
			if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing.ID != id {
				return nil, apperrors.NewConflict("email already in use", map[string]any{"email": email})
			} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.MapError(err)
			}
			user.Email = email
			fields = append(fields, "email")
		}
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
		fields = append(fields, "phone")
	}
	if input.Birthdate != nil {
		user.Birthdate = *input.Birthdate
		fields = append(fields, "birthdate")
	}
	if input.City != nil {
		user.City = *input.City
		fields = append(fields, "city")
	}
	if input.Country != nil {
		user.Country = *input.Country
		fields = append(fields, "country")
	}
	if input.Photo != nil {
		user.Photo = *input.Photo
		fields = append(fields, "photo")
	}
	if input.Category != nil {
		user.Category = *input.Category
		fields = append(fields, "category")
	}
	if input.IsAdmin != nil {
		user.IsAdmin = *input.IsAdmin
		fields = append(fields, "is_admin")
	}

	passwordChanged := false
	if input.Password != nil && *input.Password != "" {
		hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		user.PasswordHash = hash
		passwordChanged = true
	}

	if len(fields) == 0 && !passwordChanged {
		return nil, apperrors.NewValidationError("no update data provided", nil)
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventUserUpdated, user.ID, user.Email, events.UserUpdatedPayload{
		Fields:          fields,
		PasswordChanged: passwordChanged,
		SelfService:     selfService,
	})

	user.PasswordHash = ""
	return user, nil
}

// Delete removes a collaborator from the directory.
func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}

	s.publish(ctx, events.EventUserDeleted, user.ID, user.Email, nil)
	return nil
}

func (s *UserService) publish(ctx context.Context, eventType events.EventType, userID, email string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Email:     email,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
