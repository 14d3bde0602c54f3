package domain

import "time"

// Gender enumerates accepted gender values for directory profiles.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Category classifies a collaborator within the organization.
type Category string

const (
	CategoryMarketing Category = "Marketing"
	CategoryClient    Category = "Client"
	CategoryTechnique Category = "Technique"
)

// User is the domain model for a directory collaborator. PasswordHash is
// only populated by lookups made for authentication.
type User struct {
	ID           string
	Gender       Gender
	Firstname    string
	Lastname     string
	Email        string
	PasswordHash string
	Phone        string
	Birthdate    time.Time
	City         string
	Country      string
	Photo        string
	Category     Category
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
