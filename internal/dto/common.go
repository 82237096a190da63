package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/gema-arena/pkg/arena"
)

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return validate
}

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPaginationMeta converts the upstream pagination block.
func NewPaginationMeta(meta arena.PageMeta) PaginationMeta {
	return PaginationMeta{
		Page:       meta.Page,
		Limit:      meta.Limit,
		Total:      meta.Total,
		TotalPages: meta.TotalPages,
	}
}

// ListRequest is the page/limit pair accepted by list endpoints.
type ListRequest struct {
	Page  int
	Limit int
}

// FieldError describes one rejected form field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationDetails flattens validator errors into per-field messages.
// It returns nil for errors that did not come from the validator.
func ValidationDetails(err error) []FieldError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	details := make([]FieldError, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details = append(details, FieldError{
			Field:   fieldPath(fieldErr.Namespace()),
			Rule:    fieldErr.Tag(),
			Message: fieldMessage(fieldErr),
		})
	}
	return details
}

// fieldPath drops the struct name from a validator namespace.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func fieldMessage(fieldErr validator.FieldError) string {
	field := fieldErr.Field()
	switch fieldErr.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fieldErr.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fieldErr.Param())
		}
		if fieldErr.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, fieldErr.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fieldErr.Param())
	case "max":
		if fieldErr.Kind() == reflect.String {
			return fmt.Sprintf("%s is too long", field)
		}
		return fmt.Sprintf("%s must be at most %s", field, fieldErr.Param())
	case "email":
		return "Invalid email address"
	case "url":
		return "Invalid URL"
	case "eqfield":
		return "Passwords do not match"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fieldErr.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
