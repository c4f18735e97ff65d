package database

import (
	"github.com/go-playground/validator/v10"
)

// Validation is an explicit step the caller runs before a write. Repository
// functions never validate as a side effect of persistence.

// FieldError describes a single invalid field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult accumulates field errors for one candidate write
type ValidationResult struct {
	Errors []FieldError `json:"errors"`
}

// Add records a field error
func (r *ValidationResult) Add(field, message string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message})
}

// OK reports whether validation passed
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// ErrorMap groups messages by field for API error payloads
func (r ValidationResult) ErrorMap() map[string][]string {
	if len(r.Errors) == 0 {
		return nil
	}
	m := make(map[string][]string)
	for _, e := range r.Errors {
		m[e.Field] = append(m[e.Field], e.Message)
	}
	return m
}

var validate = validator.New()

// IsValidEmail reports whether a string is a well-formed email address
func IsValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

// IsValidURL reports whether a string is a well-formed absolute URL
func IsValidURL(raw string) bool {
	return validate.Var(raw, "required,url") == nil
}
