// Package validation holds request validation rules for the comment board.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"commentboard/internal/models"
)

const (
	MaxUsernameLength = 50
	MaxContentLength  = 500
)

var (
	usernameRegex    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	commentTextRegex = regexp.MustCompile(`^[a-zA-Z0-9\s.,!?'"()-]+$`)
	langTagRegex     = regexp.MustCompile(`^(auto|[a-zA-Z]{2,3}(-[a-zA-Z0-9]{2,8})*)$`)
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("commenttext", func(fl validator.FieldLevel) bool {
		return commentTextRegex.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("langtag", func(fl validator.FieldLevel) bool {
		return langTagRegex.MatchString(fl.Field().String())
	})
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}

// Struct validates v against its `validate` tags and returns a
// VALIDATION_ERROR describing the first failing field.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return models.NewValidationError(err.Error())
	}
	return models.NewValidationError(describe(fieldErrs[0]))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "username":
		return fmt.Sprintf("%s can only contain letters, numbers, underscores and hyphens", field)
	case "commenttext":
		return fmt.Sprintf("%s contains invalid characters", field)
	case "langtag":
		return fmt.Sprintf("%s must be a language code such as en or pt-BR", field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid comment ID", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// CommentID checks that id is a canonical UUID.
func CommentID(id string) error {
	if id == "" {
		return models.NewValidationError("comment ID is required")
	}
	if _, err := uuid.Parse(id); err != nil || len(id) != 36 {
		return models.NewValidationError("invalid comment ID")
	}
	return nil
}

// NormalizeText trims surrounding whitespace from user supplied text.
func NormalizeText(s string) string {
	return strings.TrimSpace(s)
}
