// Package validation wraps go-playground/validator with the field error
// shape every service returns.
package validation

import (
	"errors"
	"fmt"
	"medsched/pkg/logger"
	"medsched/pkg/model"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Fields renders the errors for AppError details.
func (v ValidationErrors) Fields() []map[string]string {
	out := make([]map[string]string, 0, len(v))
	for _, err := range v {
		out = append(out, map[string]string{"field": err.Field, "message": err.Message})
	}
	return out
}

// Validator validates model structs and translates failures into
// ValidationErrors, reporting fields by their JSON names.
type Validator struct {
	validate *validator.Validate
	messages map[string]string
}

// New builds a Validator. messages maps custom tags to their user-facing
// message.
func New(log *logger.Logger, custom map[string]validator.Func, messages map[string]string) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(model.DateTypeFunc, model.Date{})

	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatal("Failed to register validator", "tag", tag, "error", err)
		}
	}

	return &Validator{validate: v, messages: messages}
}

func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translate(validationErrs)
		}
		return err
	}
	return nil
}

func (v *Validator) translate(errs validator.ValidationErrors) ValidationErrors {
	var out ValidationErrors

	for _, err := range errs {
		field := fieldPath(err.Namespace())
		message := err.Error()

		if custom, ok := v.messages[err.Tag()]; ok {
			message = custom
		} else {
			switch err.Tag() {
			case "required":
				message = fmt.Sprintf("%s is required", field)
			case "min", "gte":
				message = fmt.Sprintf("%s must be at least %s", field, err.Param())
			case "max", "lte":
				message = fmt.Sprintf("%s must be at most %s", field, err.Param())
			case "lt":
				message = fmt.Sprintf("%s must be less than %s", field, err.Param())
			case "gt":
				message = fmt.Sprintf("%s must be greater than %s", field, err.Param())
			case "gtfield":
				message = fmt.Sprintf("%s must be greater than %s", field, err.Param())
			case "oneof":
				message = fmt.Sprintf("%s must be one of [%s]", field, err.Param())
			case "mongodb":
				message = fmt.Sprintf("%s must be a valid identifier", field)
			case "timezone":
				message = fmt.Sprintf("%s must be a valid IANA time zone", field)
			}
		}

		out = append(out, ValidationError{Field: field, Message: message})
	}

	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
