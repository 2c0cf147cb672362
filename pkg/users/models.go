package users

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// PasswordMask is the fixed sentinel shown in place of the password hash in
// every outward representation. Never the real hash, never empty.
const PasswordMask = "********"

// User represents a stored identity. The Password column holds the bcrypt
// hash; Redacted must be called before a User leaves the service layer.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"not null" json:"name"`
	Password  string    `gorm:"not null" json:"password"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// Redacted returns a copy with the password hash replaced by PasswordMask.
func (u User) Redacted() *User {
	u.Password = PasswordMask
	return &u
}

// LoginResult carries the authenticated identity and its issued token.
type LoginResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CreateParams is the input shape for creating an identity.
type CreateParams struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateParams is the input shape for updating an identity. Empty fields are
// left untouched; a non-empty Password is re-hashed before persisting.
type UpdateParams struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginParams is the input shape for credential verification.
type LoginParams struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var validate = validator.New()

// Validate checks the creation input and returns field-level errors.
func (p CreateParams) Validate() []FieldError {
	return fieldErrors(validate.Struct(p))
}

// Validate checks the update input and returns field-level errors.
func (p UpdateParams) Validate() []FieldError {
	return fieldErrors(validate.Struct(p))
}

// Validate checks the login input and returns field-level errors.
func (p LoginParams) Validate() []FieldError {
	return fieldErrors(validate.Struct(p))
}

// fieldErrors translates validator failures into boundary-friendly messages.
func fieldErrors(err error) []FieldError {
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		var msg string
		switch fe.Tag() {
		case "required":
			msg = fmt.Sprintf("%s is required", field)
		case "email":
			msg = fmt.Sprintf("%s must be a valid email address", field)
		default:
			msg = fmt.Sprintf("%s is invalid", field)
		}
		out = append(out, FieldError{Field: field, Message: msg})
	}
	return out
}
