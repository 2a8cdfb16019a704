package config

import (
	"fmt"
	"net"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	if err := validate.RegisterValidation("hostport", validateHostPort); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("hostport_or_empty", validateHostPortOrEmpty); err != nil {
		panic(err)
	}

	// Report fields by the environment variable that sets them.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("env")
	})
}

// Validate checks the configuration and reports every violation at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fe.Field() + " " + validationMessage(fe)
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_with":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte":
		return "must not be negative"
	case "hostport", "hostport_or_empty":
		return "must be in format 'host:port'"
	default:
		return fmt.Sprintf("failed %s", e.Tag())
	}
}

func validateHostPort(fl validator.FieldLevel) bool {
	_, _, err := net.SplitHostPort(fl.Field().String())
	return err == nil
}

func validateHostPortOrEmpty(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	return validateHostPort(fl)
}
