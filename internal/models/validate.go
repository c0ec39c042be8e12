package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Validator returns the shared validator, reporting fields by their JSON names.
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}

			return name
		})
	})

	return validate
}

// ValidateEntity checks an entity's field constraints. The moderation engine
// does not call this; handlers validate before submitting.
func ValidateEntity(e Entity) error {
	if e == nil {
		return fmt.Errorf("%w: entity is required", ErrValidation)
	}

	err := Validator().Struct(e)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]

		return fmt.Errorf("%w: field '%s' failed on the '%s' tag", ErrValidation, fe.Field(), fe.Tag())
	}

	return fmt.Errorf("%w: %w", ErrValidation, err)
}
