package dto

import (
	"strings"

	"github.com/noah-isme/gema-arena/internal/models"
)

// LoginRequest is the login form.
type LoginRequest struct {
	StudentID string `json:"studentId" validate:"required,min=1,max=50"`
	Password  string `json:"password" validate:"required,min=6"`
}

// Normalize returns a copy with a trimmed student id. Passwords are kept as
// typed.
func (r LoginRequest) Normalize() LoginRequest {
	r.StudentID = strings.TrimSpace(r.StudentID)
	return r
}

// ToInput converts the form to the upstream payload.
func (r LoginRequest) ToInput() models.LoginInput {
	return models.LoginInput{
		StudentID: strings.TrimSpace(r.StudentID),
		Password:  r.Password,
	}
}

// RegisterRequest is the registration form.
type RegisterRequest struct {
	Name            string `json:"name" validate:"required,min=2,max=100"`
	StudentID       string `json:"studentId" validate:"required,min=1,max=50"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password" validate:"required,min=6,max=100"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// Normalize returns a copy with trimmed name, student id and email.
func (r RegisterRequest) Normalize() RegisterRequest {
	r.Name = strings.TrimSpace(r.Name)
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.Email = strings.TrimSpace(r.Email)
	return r
}

// ToInput converts the form to the upstream payload. The confirmation is
// never forwarded and an empty email is omitted.
func (r RegisterRequest) ToInput() models.RegisterInput {
	return models.RegisterInput{
		Name:      strings.TrimSpace(r.Name),
		StudentID: strings.TrimSpace(r.StudentID),
		Email:     strings.TrimSpace(r.Email),
		Password:  r.Password,
	}
}
