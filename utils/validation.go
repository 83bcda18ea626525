package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/google/uuid"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank validator: %v", err))
	}

	// report fields by their JSON name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// Messages maps a field name to the message reported when a rule on that
// field fails. A "field.tag" key overrides the message for a single rule.
// Fields without an entry get a message derived from the tag.
type Messages map[string]string

// ValidateStruct validates a struct using go-playground/validator. The
// returned ValidationError carries one message per failing field; its
// Message is the message of the first failing field in declaration order.
func ValidateStruct(s interface{}, messages ...Messages) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			var msgs Messages
			if len(messages) > 0 {
				msgs = messages[0]
			}
			return NewValidationError(validationErrors, msgs)
		}
		return err
	}
	return nil
}

// ValidationError wraps validation errors with structured details
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError from validator.ValidationErrors
func NewValidationError(errs validator.ValidationErrors, messages Messages) *ValidationError {
	fields := make(map[string]string, len(errs))
	first := ""
	for _, err := range errs {
		field := err.Field()
		if _, seen := fields[field]; seen {
			continue
		}
		msg, ok := messages[field+"."+err.Tag()]
		if !ok {
			msg, ok = messages[field]
		}
		if !ok {
			msg = tagMessage(field, err)
		}
		fields[field] = msg
		if first == "" {
			first = msg
		}
	}
	if first == "" {
		first = "Validation failed"
	}

	return &ValidationError{
		Message: first,
		Fields:  fields,
	}
}

func tagMessage(field string, err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "notblank":
		return fmt.Sprintf("%s must not be blank", field)
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, err.Param())
	default:
		return fmt.Sprintf("%s validation failed on '%s' tag", field, err.Tag())
	}
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// ParseUUID parses s as a UUID and rejects the nil UUID
func ParseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID format: %s", s)
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid UUID format: %s", s)
	}
	return id, nil
}
