package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the application configuration
func Validate(config *Config) error {
	if config == nil {
		return errors.New(errors.ErrConfigInvalid, "configuration is nil")
	}

	if err := validate.Struct(config); err != nil {
		return formatValidationError(err, errors.ErrConfigInvalid)
	}

	return nil
}

// formatValidationError formats validator errors into application errors
func formatValidationError(err error, code errors.ErrorCode) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(code, err, "validation failed")
	}

	// Get the first validation error for simplicity
	if len(validationErrs) > 0 {
		fieldErr := validationErrs[0]
		appErr := errors.New(
			code,
			fmt.Sprintf("validation failed for field '%s'", fieldErr.Field()),
		).WithFields(map[string]interface{}{
			"field": fieldErr.Field(),
			"tag":   fieldErr.Tag(),
		})
		// ServiceAccountJSON must never leak into an error
		if fieldErr.Field() != "ServiceAccountJSON" {
			appErr.WithField("value", fieldErr.Value())
		}
		return appErr
	}

	return errors.New(code, "validation failed")
}
