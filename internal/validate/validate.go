package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Struct validates s against its `validate` tags. Failures are returned as
// validation.Errors keyed by json field name so PocketBase renders them in
// the error response data.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := validation.Errors{}
	for _, fe := range fieldErrs {
		errs[fe.Field()] = validation.NewError("validation_"+fe.Tag(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Cannot be blank."
	case "email":
		return "Must be a valid email address."
	case "min":
		return fmt.Sprintf("Must be at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	case "eqfield":
		return "Values don't match."
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	case "datetime":
		return fmt.Sprintf("Must match the format %s.", fe.Param())
	case "url":
		return "Must be a valid URL."
	default:
		return "Invalid value."
	}
}
