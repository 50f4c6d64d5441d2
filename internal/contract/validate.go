package contract

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared struct validator. Field names in messages come
// from mapstructure, json or form tags so they match what users typed.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"mapstructure", "json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
	})
	return validate
}

// ValidateStruct validates v and returns every violation combined with multierr.
func ValidateStruct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	var combined error
	for _, fe := range fieldErrs {
		combined = multierr.Append(combined, describeFieldError(fe))
	}
	return combined
}

func describeFieldError(fe validator.FieldError) error {
	name := fe.Namespace()
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", name)
	case "min", "gte":
		return fmt.Errorf("%s must be at least %s (got %v)", name, fe.Param(), fe.Value())
	case "max", "lte":
		return fmt.Errorf("%s must be at most %s (got %v)", name, fe.Param(), fe.Value())
	case "gt":
		return fmt.Errorf("%s must be greater than %s (got %v)", name, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s] (got %v)", name, fe.Param(), fe.Value())
	default:
		return fmt.Errorf("%s failed %s validation (got %v)", name, fe.Tag(), fe.Value())
	}
}
