// Package validation checks request bodies against `validate` struct tags.
package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/gijiroku/minutes/internal/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their JSON names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates s and returns a VALIDATION_ERROR listing every failing
// field, or nil.
func Struct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return errors.NewValidationError("request validation failed", "VALIDATION_ERROR", "Check the request body.")
	}

	fields := make([]FieldError, 0, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		path := e.Namespace()
		if i := strings.Index(path, "."); i >= 0 {
			path = path[i+1:]
		}
		msg := message(e)
		fields = append(fields, FieldError{Field: path, Message: msg})
		messages = append(messages, path+" "+msg)
	}

	return errors.NewValidationError(strings.Join(messages, "; "), "VALIDATION_ERROR", "Fix the listed fields and try again.").
		WithDetail("fields", fields)
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "datetime":
		return "must be a date formatted as " + e.Param()
	case "dive":
		return "has an invalid item"
	default:
		return "is invalid"
	}
}
