package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/collabdir/directory-service/internal/domain"
)

// BirthdateLayout is the wire format for birthdates.
const BirthdateLayout = "2006-01-02"

// CreateUserRequest payload for new collaborators.
type CreateUserRequest struct {
	Gender    string `json:"gender"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	Birthdate string `json:"birthdate"`
	City      string `json:"city"`
	Country   string `json:"country"`
	Photo     string `json:"photo"`
	Category  string `json:"category"`
	IsAdmin   bool   `json:"isAdmin"`
}

// Validate runs validation rules.
func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Gender, validation.Required, validation.In("male", "female")),
		validation.Field(&r.Firstname, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Lastname, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(&r.Phone, validation.Required),
		validation.Field(&r.Birthdate, validation.Required, validation.Date(BirthdateLayout)),
		validation.Field(&r.City, validation.Required),
		validation.Field(&r.Country, validation.Required),
		validation.Field(&r.Photo, validation.Required, is.URL),
		validation.Field(&r.Category, validation.Required, validation.In("Marketing", "Client", "Technique")),
	)
}

// UpdateUserRequest payload for admin updates; every field is optional.
type UpdateUserRequest struct {
	Gender    *string `json:"gender"`
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	Phone     *string `json:"phone"`
	Birthdate *string `json:"birthdate"`
	City      *string `json:"city"`
	Country   *string `json:"country"`
	Photo     *string `json:"photo"`
	Category  *string `json:"category"`
	IsAdmin   *bool   `json:"isAdmin"`
}

// Validate runs validation rules; absent fields are skipped.
func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Gender, validation.In("male", "female")),
		validation.Field(&r.Firstname, validation.Length(1, 200)),
		validation.Field(&r.Lastname, validation.Length(1, 200)),
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Password, validation.Length(6, 100)),
		validation.Field(&r.Birthdate, validation.Date(BirthdateLayout)),
		validation.Field(&r.Photo, is.URL),
		validation.Field(&r.Category, validation.In("Marketing", "Client", "Technique")),
	)
}

// UpdateProfileRequest payload for self-service updates. It intentionally
// carries no admin flag.
type UpdateProfileRequest struct {
	Gender    *string `json:"gender"`
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	Phone     *string `json:"phone"`
	Birthdate *string `json:"birthdate"`
	City      *string `json:"city"`
	Country   *string `json:"country"`
	Photo     *string `json:"photo"`
	Category  *string `json:"category"`
}

// Validate runs validation rules; absent fields are skipped.
func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Gender, validation.In("male", "female")),
		validation.Field(&r.Firstname, validation.Length(1, 200)),
		validation.Field(&r.Lastname, validation.Length(1, 200)),
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Password, validation.Length(6, 100)),
		validation.Field(&r.Birthdate, validation.Date(BirthdateLayout)),
		validation.Field(&r.Photo, is.URL),
		validation.Field(&r.Category, validation.In("Marketing", "Client", "Technique")),
	)
}

// UserResponse is the sanitized collaborator view; it never carries the
// password hash.
type UserResponse struct {
	ID        string    `json:"id"`
	Gender    string    `json:"gender"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Birthdate string    `json:"birthdate"`
	City      string    `json:"city"`
	Country   string    `json:"country"`
	Photo     string    `json:"photo"`
	Category  string    `json:"category"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserResponse maps a domain user to its wire representation.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Gender:    string(user.Gender),
		Firstname: user.Firstname,
		Lastname:  user.Lastname,
		Email:     user.Email,
		Phone:     user.Phone,
		Birthdate: user.Birthdate.Format(BirthdateLayout),
		City:      user.City,
		Country:   user.Country,
		Photo:     user.Photo,
		Category:  string(user.Category),
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// NewUserResponses maps a list of domain users.
func NewUserResponses(users []*domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, NewUserResponse(user))
	}
	return out
}
